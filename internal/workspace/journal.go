package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/abuild/internal/project"
)

// journal is the on-disk form of a project.Snapshot.
type journal struct {
	NextID uint64         `yaml:"next_id"`
	Done   []journalEntry `yaml:"done"`
	Undone []journalEntry `yaml:"undone"`
}

type journalEntry struct {
	ID    uint64     `yaml:"id"`
	Tag   string     `yaml:"tag"`
	Args  []string   `yaml:"args,omitempty"`
	Kind  string     `yaml:"kind"`
	Cache *yaml.Node `yaml:"cache,omitempty"`
}

func (w *Workspace) journalPath(name string) string {
	return filepath.Join(w.StateDir(), "history", name+".yaml")
}

// SaveJournal writes the project's command log.
func (w *Workspace) SaveJournal(p *project.Project) error {
	s := p.Log().Snapshot()
	j := journal{NextID: s.NextID}

	var err error
	if j.Done, err = encodeEntries(s.Done); err != nil {
		return err
	}
	if j.Undone, err = encodeEntries(s.Undone); err != nil {
		return err
	}

	data, err := yaml.Marshal(&j)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return writeFileAtomic(w.journalPath(p.Name()), data)
}

func encodeEntries(entries []project.Entry) ([]journalEntry, error) {
	out := make([]journalEntry, 0, len(entries))
	for _, e := range entries {
		je := journalEntry{ID: e.ID, Tag: e.Tag, Args: e.Args}
		if e.Cache != nil {
			je.Kind = e.Cache.Kind()
			je.Cache = &yaml.Node{}
			if err := je.Cache.Encode(e.Cache); err != nil {
				return nil, fmt.Errorf("encode history entry %d: %w", e.ID, err)
			}
		}
		out = append(out, je)
	}
	return out, nil
}

// LoadJournal restores the project's command log from disk. newCache
// returns an empty cache for a kind. A missing journal leaves the log
// untouched.
func (w *Workspace) LoadJournal(p *project.Project, newCache func(kind string) (project.Cache, bool)) error {
	path := w.journalPath(p.Name())
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	var j journal
	if err := yaml.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	s := project.Snapshot{NextID: j.NextID}
	if s.Done, err = decodeEntries(j.Done, newCache); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if s.Undone, err = decodeEntries(j.Undone, newCache); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return p.RestoreLog(s)
}

func decodeEntries(entries []journalEntry, newCache func(string) (project.Cache, bool)) ([]project.Entry, error) {
	out := make([]project.Entry, 0, len(entries))
	for _, je := range entries {
		e := project.Entry{ID: je.ID, Tag: je.Tag, Args: je.Args}
		if je.Kind != "" {
			cache, ok := newCache(je.Kind)
			if !ok {
				return nil, fmt.Errorf("entry %d: unknown cache kind %q", je.ID, je.Kind)
			}
			if je.Cache != nil {
				if err := je.Cache.Decode(cache); err != nil {
					return nil, fmt.Errorf("entry %d: %w", je.ID, err)
				}
			}
			e.Cache = cache
		}
		out = append(out, e)
	}
	return out, nil
}
