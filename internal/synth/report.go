package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/forgeplan/internal/ctxlog"
	"github.com/vk/forgeplan/internal/rule"
)

// ReportPrefix is the harness generator's one bit-exact wire format: exactly
// one line of its output stream begins with this literal prefix and carries
// the discovered package name. Every other line passes through unmodified.
const ReportPrefix = "Package: "

// ParseHarnessReport extracts the discovered package identity from a harness
// generator report. Missing, duplicated or empty Package lines are contract
// violations, not recoverable conditions: a silently wrong identity would
// produce a corrupt binary.
func ParseHarnessReport(output string) (string, error) {
	pkg := ""
	found := false
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(line, ReportPrefix) {
			continue
		}
		if found {
			return "", fmt.Errorf("harness report contains more than one %q line", ReportPrefix)
		}
		found = true
		pkg = strings.TrimSpace(strings.TrimPrefix(line, ReportPrefix))
	}
	if !found {
		return "", fmt.Errorf("harness report is missing its %q line", ReportPrefix)
	}
	if pkg == "" {
		return "", fmt.Errorf("harness report %q line names no package", ReportPrefix)
	}
	return pkg, nil
}

// identityCorrection returns the post-build correction attached to a test's
// harness-generation rule. When the discovered package differs from the
// declared rule name it splices a rename of the mismatched archive in front
// of the not-yet-executed harness-compile and link command sets. When they
// match it leaves the originally composed commands untouched.
func (s *Synthesizer) identityCorrection(declared, mainLibName, linkName string) rule.PostBuildFunc {
	return func(ctx context.Context, output string) error {
		pkg, err := ParseHarnessReport(output)
		if err != nil {
			return err
		}
		if pkg == declared {
			return nil
		}

		// A correction applied to the wrong rule would corrupt the binary
		// without a diagnostic, so the naming convention is checked before
		// anything is touched.
		if !rule.IsSubRule(mainLibName) || rule.SubRuleTag(mainLibName) != "main_lib" {
			return fmt.Errorf("correction target %s does not follow the #main_lib naming convention", mainLibName)
		}
		mainLib, ok := s.g.Rule(mainLibName)
		if !ok {
			return fmt.Errorf("correction target %s was never declared", mainLibName)
		}
		link, ok := s.g.Rule(linkName)
		if !ok {
			return fmt.Errorf("correction target %s was never declared", linkName)
		}

		prefix := fmt.Sprintf("mv -f %s %s && ", rule.ArchiveName(declared), rule.ArchiveName(pkg))
		mainLib.RenamePrefix = prefix
		mainLib.Commands = mainLib.Commands.WithPrefix(prefix)
		link.RenamePrefix = prefix
		link.Commands = link.Commands.WithPrefix(prefix)

		ctxlog.FromContext(ctx).Debug("test package identity corrected",
			"declared", declared, "discovered", pkg)
		return nil
	}
}
