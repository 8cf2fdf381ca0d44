package game

import "strings"

// nameReplacer strips characters that would escape the output directory or
// break the file name.
var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "", "..", "_")

// SanitizeName makes a username safe to embed in a file name.
// Empty names become "_".
func SanitizeName(name string) string {
	name = nameReplacer.Replace(strings.TrimSpace(name))
	if name == "" {
		return "_"
	}
	return name
}
