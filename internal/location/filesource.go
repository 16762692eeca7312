package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-client/internal/availability"
	"github.com/i474232898/weather-client/internal/weather"
)

// ErrDisabled means the fix file is missing, i.e. the platform daemon
// that writes it is not running.
var ErrDisabled = errors.New("location source disabled")

var validate = validator.New()

// FileSource reads fixes from a JSON file ({"lat": .., "lon": ..}) that a
// platform daemon rewrites on every fix. Changes are picked up with fsnotify.
type FileSource struct {
	path   string
	logger *slog.Logger
}

var (
	_ availability.Source[weather.Coordinate]        = (*FileSource)(nil)
	_ availability.HistorySource[weather.Coordinate] = (*FileSource)(nil)
)

func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger.With("component", "location-file"),
	}
}

// Subscribe watches the fix file's directory. The registration ends (the
// channel is closed) when ctx is done or the file is removed.
func (s *FileSource) Subscribe(ctx context.Context) (<-chan weather.Coordinate, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, classifyFileErr(err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: daemons usually replace the file by rename.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, classifyFileErr(err)
	}

	out := make(chan weather.Coordinate)
	go func() {
		defer close(out)
		defer watcher.Close()

		target := filepath.Clean(s.path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Remove) {
					s.logger.Info("fix file removed; dropping registration")
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				c, err := s.read()
				if err != nil {
					s.logger.Debug("ignoring unreadable fix", "error", err)
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watcher error", "error", err)
			}
		}
	}()

	return out, nil
}

// LastKnown returns the fix currently in the file.
func (s *FileSource) LastKnown(ctx context.Context) (weather.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return weather.Coordinate{}, err
	}
	c, err := s.read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return weather.Coordinate{}, availability.ErrNoHistory
		}
		return weather.Coordinate{}, err
	}
	return c, nil
}

func (s *FileSource) read() (weather.Coordinate, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return weather.Coordinate{}, err
	}
	var c weather.Coordinate
	if err := json.Unmarshal(raw, &c); err != nil {
		return weather.Coordinate{}, fmt.Errorf("decode fix: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return weather.Coordinate{}, fmt.Errorf("invalid fix: %w", err)
	}
	return c, nil
}

func classifyFileErr(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", availability.ErrPermissionDenied, err)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrDisabled, err)
	default:
		return err
	}
}
