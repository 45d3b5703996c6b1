package download

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mholt/archives"

	"github.com/glorpus-work/scidd/pkg/errors"
)

// expandToTemp decompresses the payload at srcPath into a fresh temp file in
// dir and returns its path. The source temp file is left for the caller to
// remove. Zip archives must contain exactly one member; a multi-member zip is
// a data file in its own right and cannot be flattened to a single cache
// entry.
func expandToTemp(ctx context.Context, srcPath, ext, dir string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", errors.Wrap(err, "opening downloaded payload")
	}
	defer func() { _ = src.Close() }()

	out, err := os.CreateTemp(dir, "dl-*.tmp")
	if err != nil {
		return "", errors.Wrap(err, "could not create temp file")
	}
	outPath := out.Name()

	switch ext {
	case ".gz":
		err = copyDecompressed(archives.Gz{}, src, out)
	case ".bz2":
		err = copyDecompressed(archives.Bz2{}, src, out)
	case ".zip":
		err = extractSingleZipMember(ctx, src, out)
	default:
		err = fmt.Errorf("unsupported compression extension %q", ext)
	}
	if err != nil {
		_ = out.Close()
		_ = os.Remove(outPath)
		return "", err
	}

	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(outPath)
		return "", errors.Wrap(err, "could not sync file")
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(outPath)
		return "", errors.Wrap(err, "could not close file")
	}
	return outPath, nil
}

func copyDecompressed(c archives.Compression, src io.Reader, out io.Writer) error {
	rc, err := c.OpenReader(src)
	if err != nil {
		return errors.Wrap(err, "opening compressed stream")
	}
	defer func() { _ = rc.Close() }()
	if _, err := io.Copy(out, rc); err != nil {
		return errors.Wrap(err, "decompressing payload")
	}
	return nil
}

func extractSingleZipMember(ctx context.Context, src io.Reader, out io.Writer) error {
	var members int
	err := archives.Zip{}.Extract(ctx, src, func(_ context.Context, f archives.FileInfo) error {
		if f.IsDir() {
			return nil
		}
		members++
		if members > 1 {
			return fmt.Errorf("zip archive has more than one member")
		}
		r, err := f.Open()
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()
		_, err = io.Copy(out, r)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "extracting zip payload")
	}
	if members == 0 {
		return fmt.Errorf("zip archive has no file members")
	}
	return nil
}
