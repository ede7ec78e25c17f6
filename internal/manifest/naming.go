package manifest

import (
	"strings"
	"unicode"
)

// RemoveScope strips an npm scope: "@scope/my-lib" -> "my-lib".
func RemoveScope(pkgName string) string {
	if strings.HasPrefix(pkgName, "@") {
		if i := strings.Index(pkgName, "/"); i >= 0 {
			return pkgName[i+1:]
		}
	}
	return pkgName
}

// LibraryName turns a package name into the global identifier used by the
// iife and umd formats: "@scope/my-lib" -> "MyLib", "d3.geo" -> "D3Geo".
func LibraryName(pkgName string) string {
	base := RemoveScope(pkgName)

	var b strings.Builder
	upper := true
	for _, r := range base {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}

	name := b.String()
	// Identifiers cannot start with a digit
	if name != "" && unicode.IsDigit(rune(name[0])) {
		name = "_" + name
	}
	return name
}
