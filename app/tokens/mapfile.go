package tokens

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	ReferenceFile   = "tokens.json"
	backupTimestamp = "20060102-150405"
)

type Entry struct {
	Token  string
	Folder string
}

// Map is the parsed form of a token map file.
type Map struct {
	byToken  map[string]string
	byFolder map[string]string
}

func NewMap(entries []Entry) *Map {
	m := &Map{
		byToken:  make(map[string]string, len(entries)),
		byFolder: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		m.byToken[e.Token] = e.Folder
		m.byFolder[e.Folder] = e.Token
	}
	return m
}

func (m *Map) TokenFor(folder string) (string, bool) {
	if m == nil {
		return "", false
	}
	token, ok := m.byFolder[folder]
	return token, ok
}

func (m *Map) FolderFor(token string) (string, bool) {
	if m == nil {
		return "", false
	}
	folder, ok := m.byToken[token]
	return folder, ok
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byToken)
}

// CreateTokenMap assigns a token to every immediate, non-hidden subdirectory
// of archiveRoot, in sorted folder order.
func CreateTokenMap(archiveRoot string, gen Generator) ([]Entry, error) {
	dirEntries, err := os.ReadDir(archiveRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive root: %w", err)
	}

	var folders []string
	for _, de := range dirEntries {
		if !de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		folders = append(folders, de.Name())
	}
	sort.Strings(folders)

	entries := make([]Entry, 0, len(folders))
	seen := make(map[string]string, len(folders))
	for _, folder := range folders {
		token, err := gen.Token(folder)
		if err != nil {
			return nil, fmt.Errorf("failed to generate token for %s: %w", folder, err)
		}
		if other, dup := seen[token]; dup {
			return nil, fmt.Errorf("token collision between %s and %s", other, folder)
		}
		seen[token] = folder
		entries = append(entries, Entry{Token: token, Folder: folder})
	}

	return entries, nil
}

// WriteTokenMap writes entries as "token folder;" lines. An existing map is
// moved into backupDir first; backups are never pruned.
func WriteTokenMap(entries []Entry, path, backupDir string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create map directory: %w", err)
	}

	backupPath, err := backupExisting(path, backupDir, time.Now())
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s %s;\n", e.Token, e.Folder)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return backupPath, fmt.Errorf("failed to write token map: %w", err)
	}

	slog.Info("Token map written", "path", path, "entries", len(entries))
	return backupPath, nil
}

func backupExisting(path, backupDir string, now time.Time) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("failed to stat token map: %w", err)
	}

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	backupPath := filepath.Join(backupDir, fmt.Sprintf("%s_%s%s", stem, now.Format(backupTimestamp), ext))

	// two runs within the same second must not clobber the first backup
	for i := 1; fileExists(backupPath); i++ {
		backupPath = filepath.Join(backupDir, fmt.Sprintf("%s_%s-%d%s", stem, now.Format(backupTimestamp), i, ext))
	}

	if err := os.Rename(path, backupPath); err != nil {
		return "", fmt.Errorf("failed to back up token map: %w", err)
	}

	slog.Info("Backed up previous token map", "path", backupPath)
	return backupPath, nil
}

// WriteReferenceJSON writes {token: folder} to tokens.json in archiveRoot,
// keeping entry order.
func WriteReferenceJSON(entries []Entry, archiveRoot string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, e := range entries {
		if i > 0 {
			buf.WriteString(",")
		}
		key, _ := json.Marshal(e.Token)
		value, _ := json.Marshal(e.Folder)
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
	}
	if len(entries) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")

	path := filepath.Join(archiveRoot, ReferenceFile)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", ReferenceFile, err)
	}

	slog.Info("Reference tokens written", "path", path)
	return path, nil
}

// LoadMap reads "token folder;" or "token<whitespace>folder" lines. Blank
// lines and lines starting with # are ignored. Malformed lines are logged and
// skipped, leaving their folders on the public prefix.
func LoadMap(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token map: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimSpace(strings.TrimSuffix(line, ";"))
		fields := strings.Fields(line)
		if len(fields) != 2 {
			slog.Warn("Skipping malformed token map line",
				"line", fmt.Sprintf("%s:%d", path, lineNo),
				"content", scanner.Text())
			continue
		}

		entries = append(entries, Entry{Token: fields[0], Folder: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read token map: %w", err)
	}

	return NewMap(entries), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
