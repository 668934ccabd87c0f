package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/lysyi3m/rss-radio/app/apperr"
)

const maxNameAttempts = 5

var ErrObjectExists = errors.New("object already exists")

type UploadOptions struct {
	// Name overrides the generated object name.
	Name string
	// Upsert replaces an existing object with the same name.
	Upsert bool
}

// Bucket is a directory of objects served over HTTP at {publicBase}/storage/{name}/.
type Bucket struct {
	name       string
	dir        string
	publicBase string
	newName    func() string
}

func NewBucket(rootDir, name, publicBase string) *Bucket {
	return &Bucket{
		name:       name,
		dir:        filepath.Join(rootDir, name),
		publicBase: strings.TrimRight(publicBase, "/"),
		newName:    uuid.NewString,
	}
}

func (b *Bucket) Name() string { return b.name }

func (b *Bucket) Dir() string { return b.dir }

// URLPrefix is the path under which objects are served.
func (b *Bucket) URLPrefix() string {
	return "/storage/" + b.name
}

// EnsureBucket creates the bucket on first use. An existing bucket is not an error.
func (b *Bucket) EnsureBucket(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &apperr.StorageError{Op: "create bucket", Err: err}
	}
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return &apperr.StorageError{Op: "create bucket", Err: err}
	}
	return nil
}

// Upload stores data under a random name carrying the extension of
// contentType and returns the object's public URL.
func (b *Bucket) Upload(ctx context.Context, data []byte, contentType string, opts UploadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &apperr.StorageError{Op: "upload", Err: err}
	}
	if len(data) == 0 {
		return "", &apperr.StorageError{Op: "upload", Err: fmt.Errorf("empty object")}
	}
	if err := b.EnsureBucket(ctx); err != nil {
		return "", err
	}

	ext := extension(data, contentType)

	if opts.Name != "" {
		if !validName(opts.Name) {
			return "", &apperr.StorageError{Op: "upload", Err: fmt.Errorf("invalid object name %q", opts.Name)}
		}
		if err := b.write(opts.Name, data, opts.Upsert); err != nil {
			return "", &apperr.StorageError{Op: "upload", Err: err}
		}
		return b.PublicURL(opts.Name), nil
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := b.newName() + ext
		err := b.write(name, data, opts.Upsert)
		if errors.Is(err, ErrObjectExists) {
			slog.Debug("Object name collision, retrying", "bucket", b.name, "name", name)
			continue
		}
		if err != nil {
			return "", &apperr.StorageError{Op: "upload", Err: err}
		}

		slog.Debug("Object uploaded", "bucket", b.name, "name", name, "size", len(data))
		return b.PublicURL(name), nil
	}

	return "", &apperr.StorageError{Op: "upload", Err: fmt.Errorf("no free object name after %d attempts", maxNameAttempts)}
}

// Remove deletes the named objects. Missing objects are ignored.
func (b *Bucket) Remove(ctx context.Context, names []string) error {
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return &apperr.StorageError{Op: "remove", Err: err}
		}
		if !validName(name) {
			errs = append(errs, fmt.Errorf("invalid object name %q", name))
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return &apperr.StorageError{Op: "remove", Err: err}
	}
	return nil
}

// RemoveURLs deletes the objects addressed by public URLs.
func (b *Bucket) RemoveURLs(ctx context.Context, urls []string) error {
	names := make([]string, 0, len(urls))
	for _, u := range urls {
		if name := b.ObjectName(u); name != "" {
			names = append(names, name)
		}
	}
	return b.Remove(ctx, names)
}

func (b *Bucket) PublicURL(name string) string {
	return b.publicBase + b.URLPrefix() + "/" + name
}

// ObjectName returns the last path segment of a public object URL.
func (b *Bucket) ObjectName(objectURL string) string {
	if objectURL == "" {
		return ""
	}
	p := objectURL
	if parsed, err := url.Parse(objectURL); err == nil {
		p = parsed.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// Size returns the stored size of the object behind objectURL, or 0.
func (b *Bucket) Size(objectURL string) int64 {
	name := b.ObjectName(objectURL)
	if !validName(name) {
		return 0
	}
	info, err := os.Stat(filepath.Join(b.dir, name))
	if err != nil {
		return 0
	}
	return info.Size()
}

func (b *Bucket) write(name string, data []byte, upsert bool) error {
	target := filepath.Join(b.dir, name)

	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if upsert {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	file, err := os.OpenFile(target, flag, 0644)
	if errors.Is(err, fs.ErrExist) {
		return ErrObjectExists
	}
	if err != nil {
		return fmt.Errorf("failed to create object: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(target)
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(target)
		return fmt.Errorf("failed to close object: %w", err)
	}
	return nil
}

func extension(data []byte, contentType string) string {
	if contentType != "" {
		if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
			return m.Extension()
		}
	}
	return mimetype.Detect(data).Extension()
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
