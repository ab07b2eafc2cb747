package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/mrmr/pkg/config"
	"github.com/ajitpratap0/mrmr/pkg/errors"
)

// BackendFactory creates the backend for one scheme on first use
type BackendFactory func(ctx context.Context) (Backend, error)

// StagedFile is a local file standing in for a location. Temporary files are
// removed on Close unless they were committed.
type StagedFile struct {
	*os.File
	temp      bool
	committed bool
	// direct files are the destination itself, such as a pipe or a device
	direct bool
	// mode is applied to a local output before it is renamed into place
	mode os.FileMode
}

// Close closes the file and removes it if it is an uncommitted temporary
func (f *StagedFile) Close() error {
	err := f.File.Close()
	if errors.Is(err, os.ErrClosed) {
		err = nil
	}
	if f.temp && !f.committed {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = rmErr
		}
	}
	return err
}

// Stager maps locations onto local files
type Stager struct {
	cfg       config.StorageConfig
	logger    *zap.Logger
	factories map[Scheme]BackendFactory

	mu       sync.Mutex
	backends map[Scheme]Backend
}

// NewStager creates a stager with the S3 and GCS backends registered
func NewStager(cfg config.StorageConfig, logger *zap.Logger) *Stager {
	s := &Stager{
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "storage")),
		backends: make(map[Scheme]Backend),
	}
	s.factories = map[Scheme]BackendFactory{
		SchemeS3: func(ctx context.Context) (Backend, error) {
			return NewS3Backend(ctx, cfg.Region)
		},
		SchemeGCS: func(ctx context.Context) (Backend, error) {
			return NewGCSBackend(ctx, cfg.CredentialsFile)
		},
	}
	return s
}

// RegisterBackend replaces the backend of a scheme
func (s *Stager) RegisterBackend(scheme Scheme, b Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backends[scheme] = b
}

func (s *Stager) backend(ctx context.Context, scheme Scheme) (Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.backends[scheme]; ok {
		return b, nil
	}
	factory, ok := s.factories[scheme]
	if !ok {
		return nil, errors.New(errors.ErrorTypeStorage, "no backend for scheme").
			WithDetail("scheme", string(scheme))
	}
	b, err := factory(ctx)
	if err != nil {
		return nil, err
	}
	s.backends[scheme] = b
	return b, nil
}

// OpenInput returns a seekable local file with the content of loc
func (s *Stager) OpenInput(ctx context.Context, loc Location) (*StagedFile, error) {
	if !loc.IsRemote() {
		f, err := os.Open(loc.Key)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").
				WithDetail("path", loc.Key)
		}
		return &StagedFile{File: f}, nil
	}

	b, err := s.backend(ctx, loc.Scheme)
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(s.cfg.TempDir, "mrmr-input-*-"+loc.Base())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create staging file")
	}
	staged := &StagedFile{File: f, temp: true}

	s.logger.Debug("downloading input", zap.String("location", loc.String()), zap.String("staging", f.Name()))
	if err := b.Download(ctx, loc, f); err != nil {
		_ = staged.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = staged.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to rewind staged input")
	}
	return staged, nil
}

// CreateOutput returns a temporary file that Commit later moves to loc.
// Local outputs are staged in the destination directory so Commit is a rename,
// and keep the permissions of the file they replace. An existing destination
// that is not a regular file, such as /dev/stdout or a FIFO, is written in
// place.
func (s *Stager) CreateOutput(loc Location) (*StagedFile, error) {
	dir := s.cfg.TempDir
	pattern := "mrmr-output-*-" + loc.Base()
	mode := os.FileMode(0o644)
	if !loc.IsRemote() {
		if info, err := os.Stat(loc.Key); err == nil {
			if !info.Mode().IsRegular() {
				return s.openDirect(loc)
			}
			mode = info.Mode().Perm()
		}
		dir = filepath.Dir(loc.Key)
		pattern = "." + loc.Base() + ".*.tmp"
	}

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output").
			WithDetail("location", loc.String())
	}
	return &StagedFile{File: f, temp: true, mode: mode}, nil
}

func (s *Stager) openDirect(loc Location) (*StagedFile, error) {
	f, err := os.OpenFile(loc.Key, os.O_WRONLY, 0)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open output").
			WithDetail("path", loc.Key)
	}
	s.logger.Debug("writing output in place", zap.String("path", loc.Key))
	return &StagedFile{File: f, direct: true}, nil
}

// CreateScratch returns a temporary file in the staging directory that is
// removed on Close
func (s *Stager) CreateScratch(name string) (*StagedFile, error) {
	f, err := os.CreateTemp(s.cfg.TempDir, "mrmr-scratch-*-"+name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create scratch file")
	}
	return &StagedFile{File: f, temp: true}, nil
}

// Commit publishes a staged output at loc and closes it
func (s *Stager) Commit(ctx context.Context, f *StagedFile, loc Location, contentType string) error {
	if f.direct {
		f.committed = true
		if err := f.File.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to close output").
				WithDetail("path", loc.Key)
		}
		return nil
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to sync output")
	}

	if !loc.IsRemote() {
		if err := f.File.Close(); err != nil {
			_ = f.Close()
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to close output")
		}
		if err := os.Chmod(f.Name(), f.mode); err != nil {
			_ = f.Close()
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to set output permissions")
		}
		if err := os.Rename(f.Name(), loc.Key); err != nil {
			_ = f.Close()
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to move output into place").
				WithDetail("path", loc.Key)
		}
		f.committed = true
		return nil
	}

	defer f.Close()

	b, err := s.backend(ctx, loc.Scheme)
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to rewind output")
	}

	s.logger.Debug("uploading output", zap.String("location", loc.String()))
	return b.Upload(ctx, loc, f, contentType)
}

// Close releases every backend that was created
func (s *Stager) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var first error
	for scheme, b := range s.backends {
		if err := b.Close(); err != nil && first == nil {
			first = errors.Wrap(err, errors.ErrorTypeStorage, "failed to close backend").
				WithDetail("scheme", string(scheme))
		}
	}
	s.backends = make(map[Scheme]Backend)
	return first
}
