// Package filestore keeps the deleted-record ledger in a plain text file,
// one Approval ID per line.
//
// The file is read in full on Load and rewritten in full on every new
// insertion. Rewrites go through a temp file and a rename, so a crash leaves
// either the old set or the new set on disk, never a truncated one. A file
// that does not exist yet is an empty ledger.
package filestore

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/warp/leave-sync/generic"
)

type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	return sortedKeys(set), nil
}

// Append adds approvalID and rewrites the file before returning.
func (s *Store) Append(ctx context.Context, approvalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.readLocked()
	if err != nil {
		return err
	}
	if _, ok := set[approvalID]; ok {
		return nil
	}
	set[approvalID] = struct{}{}

	var buf bytes.Buffer
	for _, id := range sortedKeys(set) {
		buf.WriteString(id)
		buf.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	if err := writeFileAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write ledger %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) readLocked() (map[string]struct{}, error) {
	set := make(map[string]struct{})
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", s.path, err)
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if id := strings.TrimSpace(sc.Text()); id != "" {
			set[id] = struct{}{}
		}
	}
	return set, sc.Err()
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var _ generic.LedgerStore = (*Store)(nil)
