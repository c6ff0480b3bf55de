package bundler

import (
	"path/filepath"
	"strings"
)

// DefaultSourceRoot is the leading directory trimmed from bundle names.
const DefaultSourceRoot = "src"

// DeriveBundleName returns the bundle identifier for an entrypoint, using the
// default source root.
//
//	DeriveBundleName("src/hello-world.lambda.ts", ".lambda.ts") == "hello-world"
//	DeriveBundleName("src/sub/dir/foo.lambda.ts", ".lambda.ts") == "sub/dir/foo"
func DeriveBundleName(entrypoint, extension string) string {
	return DeriveBundleNameWithRoot(entrypoint, extension, DefaultSourceRoot)
}

// DeriveBundleNameWithRoot drops a single leading root segment from the
// entrypoint, strips the extension and returns "dir/base" with forward
// slashes. When extension is empty only the last filename extension is removed.
func DeriveBundleNameWithRoot(entrypoint, extension, root string) string {
	parts := strings.Split(filepath.Clean(entrypoint), string(filepath.Separator))
	if len(parts) > 1 && root != "" && parts[0] == root {
		parts = parts[1:]
	}

	p := filepath.Join(parts...)
	dir := filepath.Dir(p)
	base := stripExtension(filepath.Base(p), extension)

	if dir == "." || dir == string(filepath.Separator) {
		return base
	}
	return ToPortablePath(filepath.Join(dir, base))
}

// BaseName returns the entrypoint's file name without directory and extension.
func BaseName(entrypoint, extension string) string {
	return stripExtension(filepath.Base(entrypoint), extension)
}

// ToPortablePath replaces every platform separator with a forward slash.
func ToPortablePath(p string) string {
	if filepath.Separator == '/' {
		return p
	}
	return strings.ReplaceAll(p, string(filepath.Separator), "/")
}

func stripExtension(name, extension string) string {
	if extension == "" {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return strings.TrimSuffix(name, extension)
}
