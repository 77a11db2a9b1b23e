package digester

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
)

// CalculateDigest computes the SHA256 hex digest of the file
// name in fsys. Returns empty string with no error if the file
// does not exist.
func CalculateDigest(
	fsys fs.FS,
	name string,
) (result string, retErr error) {
	const errCtx = "calculating digest"

	fi, err := fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	ha := sha256.New()

	if _, err := io.Copy(ha, fi); err != nil {
		return "", fmt.Errorf("%s: %s: %w", errCtx, name, err)
	}

	return hex.EncodeToString(ha.Sum(nil)), nil
}

// CombinedDigest digests a set of files: their names and
// contents, independent of the order of names. Two calls
// agree exactly when the same files hold the same bytes.
func CombinedDigest(
	fsys fs.FS,
	names []string,
) (string, error) {
	const errCtx = "calculating combined digest"

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	ha := sha256.New()

	for _, name := range sorted {
		digest, err := CalculateDigest(fsys, name)
		if err != nil {
			return "", fmt.Errorf("%s: %w", errCtx, err)
		}

		// NUL never appears in a path.
		fmt.Fprintf(ha, "%s\x00%s\n", name, digest)
	}

	return hex.EncodeToString(ha.Sum(nil)), nil
}
