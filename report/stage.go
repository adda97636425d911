package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// stage holds artifacts written under temporary names until commit.
type stage struct {
	files     []staged
	committed []string
	done      bool
}

type staged struct {
	name, tmp, final string
}

func (s *stage) write(dir, name string, data []byte) error {
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrRender, name, err)
	}
	s.files = append(s.files, staged{name: name, tmp: f.Name(), final: filepath.Join(dir, name)})
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("%w: write %s: %w", ErrRender, name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrRender, name, err)
	}
	return nil
}

func (s *stage) tempPath(name string) string {
	for _, f := range s.files {
		if f.name == name {
			return f.tmp
		}
	}
	return ""
}

// commit renames every staged file into place. On failure the files
// already renamed are removed again.
func (s *stage) commit() error {
	for _, f := range s.files {
		if err := os.Chmod(f.tmp, 0o644); err != nil {
			return fmt.Errorf("%w: chmod %s: %w", ErrRender, f.name, err)
		}
		if err := os.Rename(f.tmp, f.final); err != nil {
			for _, p := range s.committed {
				os.Remove(p)
			}
			s.committed = nil
			return fmt.Errorf("%w: rename %s: %w", ErrRender, f.name, err)
		}
		s.committed = append(s.committed, f.final)
	}
	s.done = true
	return nil
}

// discard removes temporary files left by an aborted render.
func (s *stage) discard() {
	if s.done {
		return
	}
	for _, f := range s.files {
		os.Remove(f.tmp)
	}
}
