// Package filemeta reads creation, access and modification times of local files.
package filemeta

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/pkg/errors"

	"github.com/hrygo/timextag/plugin/temporal"
)

// Reader reads file timestamps from the local filesystem.
// Birth time is reported only on filesystems that track it.
type Reader struct {
	stat func(name string) (times.Timespec, error)
}

// NewReader creates a new Reader.
func NewReader() *Reader {
	return &Reader{stat: times.Stat}
}

// Stat returns the timestamps of the file at path. A file:// URL is accepted as well.
func (r *Reader) Stat(ctx context.Context, path string) (*temporal.FileTimes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := LocalPath(path)
	if err != nil {
		return nil, err
	}

	ts, err := r.stat(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", name)
	}

	result := &temporal.FileTimes{
		Accessed: nonZero(ts.AccessTime()),
		Modified: nonZero(ts.ModTime()),
	}
	if ts.HasBirthTime() {
		result.Created = nonZero(ts.BirthTime())
	}
	return result, nil
}

// LocalPath converts a source reference into a filesystem path.
func LocalPath(source string) (string, error) {
	if !strings.HasPrefix(source, "file:") {
		return source, nil
	}
	u, err := url.Parse(source)
	if err != nil {
		return "", errors.Wrapf(err, "invalid source url %s", source)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", errors.Errorf("source url %s is not a local file", source)
	}
	return u.Path, nil
}

func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ temporal.FileMetadata = (*Reader)(nil)
