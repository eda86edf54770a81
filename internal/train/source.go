/*
source.go, part of GCNdesign



LICENSE

Copyright (c) 2024 Raul Mera <rmeraa{at}academicosDOTutaDOTcl>


This program, including its documentation,
is free software; you can redistribute it and/or modify
it under the terms of the GNU General Public License version 2.0 as
published by the Free Software Foundation.

This program and its documentation is distributed in the hope that
it will be useful, but WITHOUT ANY WARRANTY; without even the
implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR
PURPOSE.  See the GNU General Public License for more details.

You should have received a copy of the GNU General
Public License along with this program.  If not, see
<http://www.gnu.org/licenses/>.

*/

package train

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/features"
	"github.com/rmera/gcndesign/internal/gcnerr"
	"github.com/rmera/scu"
)

// Source gives indexed access to featurized structures. Get can be called
// any number of times, in any order.
type Source interface {
	Len() int
	Name(i int) string
	Get(i int) (*features.Graph, error)
}

// ReadList reads a data list: one PDB path per line. Blank lines and lines
// starting with # are ignored. Every listed file must exist.
func ReadList(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, gcnerr.InputNotFound("data list", path)
	}
	rd, err := scu.NewMustReadFile(path)
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	var files []string
	for line := rd.Next(); line != "EOF"; line = rd.Next() {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := os.Stat(line); err != nil {
			return nil, gcnerr.DataNotFound(path, line)
		}
		files = append(files, line)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("data list %q has no entries: %w", path, gcnerr.ErrDataNotFound)
	}
	return files, nil
}

// OpenSource reads the list and builds the source variant named by
// opts.DataLoader.
func OpenSource(list string, ext *features.Extractor, opts config.RunOptions, log *slog.Logger) (Source, error) {
	files, err := ReadList(list)
	if err != nil {
		return nil, err
	}
	lazy := &Lazy{Files: files, Ext: ext, log: log}
	switch opts.DataLoader {
	case config.LoaderEager:
		return NewEager(lazy)
	case config.LoaderCached:
		return NewCached(lazy, opts.CacheSize)
	default:
		return lazy, nil
	}
}

// Lazy featurizes a structure each time it is requested.
type Lazy struct {
	Files []string
	Ext   *features.Extractor
	log   *slog.Logger
}

func (l *Lazy) Len() int          { return len(l.Files) }
func (l *Lazy) Name(i int) string { return l.Files[i] }

func (l *Lazy) Get(i int) (*features.Graph, error) {
	g, warnings, err := l.Ext.FromFile(l.Files[i])
	if l.log != nil {
		for _, w := range warnings {
			l.log.Warn(w, "file", l.Files[i])
		}
	}
	return g, err
}

// Eager holds every graph in memory.
type Eager struct {
	names  []string
	graphs []*features.Graph
}

// NewEager featurizes every structure of src up front.
func NewEager(src Source) (*Eager, error) {
	e := &Eager{names: make([]string, src.Len()), graphs: make([]*features.Graph, src.Len())}
	for i := range e.graphs {
		g, err := src.Get(i)
		if err != nil {
			return nil, err
		}
		e.names[i] = src.Name(i)
		e.graphs[i] = g
	}
	return e, nil
}

func (e *Eager) Len() int                           { return len(e.graphs) }
func (e *Eager) Name(i int) string                  { return e.names[i] }
func (e *Eager) Get(i int) (*features.Graph, error) { return e.graphs[i], nil }

// Cached keeps the most recently used graphs of a lazy source.
type Cached struct {
	src   Source
	cache *lru.Cache[int, *features.Graph]
}

func NewCached(src Source, size int) (*Cached, error) {
	c, err := lru.New[int, *features.Graph](size)
	if err != nil {
		return nil, fmt.Errorf("graph cache: %v: %w", err, gcnerr.ErrInvalidConfig)
	}
	return &Cached{src: src, cache: c}, nil
}

func (c *Cached) Len() int          { return c.src.Len() }
func (c *Cached) Name(i int) string { return c.src.Name(i) }

func (c *Cached) Get(i int) (*features.Graph, error) {
	if g, ok := c.cache.Get(i); ok {
		return g, nil
	}
	g, err := c.src.Get(i)
	if err != nil {
		return nil, err
	}
	c.cache.Add(i, g)
	return g, nil
}
