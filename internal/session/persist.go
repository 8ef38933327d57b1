package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pavelanni/skillforge/internal/model"
)

// ErrNotFound is returned by LoadSession when no saved session matches.
var ErrNotFound = errors.New("session not found")

// SessionInfo is the summary row shown by the sessions listing.
type SessionInfo struct {
	SessionID         string             `json:"session_id"`
	Topic             string             `json:"topic"`
	Difficulty        model.Difficulty   `json:"difficulty"`
	State             model.SessionState `json:"state"`
	CompletionPercent float64            `json:"completion_percent"`
	LastActivityAt    time.Time          `json:"last_activity_at"`
}

func sessionsDir(dataDir string) string {
	return filepath.Join(dataDir, "sessions")
}

func sessionPath(dataDir, sessionID string) string {
	return filepath.Join(sessionsDir(dataDir), sessionID+".json")
}

// saveProgress writes the session to disk. The write goes through a temp
// file in the same directory followed by a rename so a crash mid-write
// never leaves a truncated session file. If the rename path fails (some
// filesystems), it falls back to a direct write.
func (m *Manager) saveProgress() {
	if err := SaveSession(m.dataDir, m.session); err != nil {
		slog.Warn("save session", "session", m.session.SessionID, "error", err)
	}
}

// SaveSession persists one session under <dataDir>/sessions/<id>.json.
func SaveSession(dataDir string, sess *model.LearningSession) error {
	dir := sessionsDir(dataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.SessionID, err)
	}
	target := sessionPath(dataDir, sess.SessionID)

	tmp, err := os.CreateTemp(dir, "session-*.tmp")
	if err != nil {
		return writeDirect(target, data)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return writeDirect(target, data)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return writeDirect(target, data)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return writeDirect(target, data)
	}
	return nil
}

func writeDirect(target string, data []byte) error {
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// LoadSession restores a saved session and wraps it in a manager. The
// session is resumed (state set back to active) so Run can pick up where
// the learner left off. Returns ErrNotFound when no file exists for the id.
func LoadSession(sessionID string, sim Simulator, val Validator, disp Display, dataDir string, history AttemptRecorder) (*Manager, error) {
	sess, err := ReadSession(dataDir, sessionID)
	if err != nil {
		return nil, err
	}
	sess.Resume()
	return NewManager(sess, sim, val, disp, dataDir, history), nil
}

// ReadSession reads one saved session file without changing its state.
func ReadSession(dataDir, sessionID string) (*model.LearningSession, error) {
	data, err := os.ReadFile(sessionPath(dataDir, sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	var sess model.LearningSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// ResolveSessionID expands a (possibly partial) session id to a full one.
// An exact match wins; otherwise a unique prefix match is accepted.
func ResolveSessionID(dataDir, partial string) (string, error) {
	if partial == "" {
		return "", fmt.Errorf("%w: empty session id", ErrNotFound)
	}
	if _, err := os.Stat(sessionPath(dataDir, partial)); err == nil {
		return partial, nil
	}

	infos, err := FindSavedSessions(dataDir)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, info := range infos {
		if strings.HasPrefix(info.SessionID, partial) {
			matches = append(matches, info.SessionID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, partial)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("session id %q is ambiguous (%d matches)", partial, len(matches))
	}
}

// FindSavedSessions lists saved sessions, newest activity first. Files
// that fail to parse are skipped with a warning rather than aborting the
// listing.
func FindSavedSessions(dataDir string) ([]SessionInfo, error) {
	dir := sessionsDir(dataDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var infos []SessionInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("read session file", "file", name, "error", err)
			continue
		}
		var sess model.LearningSession
		if err := json.Unmarshal(data, &sess); err != nil {
			slog.Warn("skip corrupt session file", "file", name, "error", err)
			continue
		}
		infos = append(infos, SessionInfo{
			SessionID:         sess.SessionID,
			Topic:             sess.Course.Topic,
			Difficulty:        sess.Course.Difficulty,
			State:             sess.State,
			CompletionPercent: sess.Progress.CompletionPercent(),
			LastActivityAt:    sess.LastActivityAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastActivityAt.After(infos[j].LastActivityAt)
	})
	return infos, nil
}
