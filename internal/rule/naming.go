package rule

import (
	"fmt"
	"strings"
)

// Naming conventions shared by every pipeline. Private sub-rules use a
// leading underscore and a '#tag' suffix so they sort apart from, and are
// never confused with, user-declared rules.

// SubRuleName derives the name of a pipeline-owned sub-rule from its owning
// rule's name and a role tag (abi, asm, cgo, lib, go, c, main, main_lib).
func SubRuleName(name, tag string) string {
	return "_" + name + "#" + tag
}

// IsSubRule reports whether name follows the private sub-rule convention.
func IsSubRule(name string) bool {
	return strings.HasPrefix(name, "_") && strings.Contains(name, "#")
}

// SubRuleTag extracts the role tag from a private sub-rule name.
func SubRuleTag(name string) string {
	if i := strings.LastIndex(name, "#"); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// ArchiveName is the output archive for a library-flavoured rule.
func ArchiveName(name string) string {
	return name + ".a"
}

// ReferenceName resolves a ':'-prefixed input to the rule it references.
// It returns an error for inputs that are plain files.
func ReferenceName(input string) (string, error) {
	if !strings.HasPrefix(input, ":") {
		return "", fmt.Errorf("input %q is not a rule reference", input)
	}
	return input[1:], nil
}

// IsReference reports whether the input names another rule rather than a file.
func IsReference(input string) bool {
	return strings.HasPrefix(input, ":")
}
