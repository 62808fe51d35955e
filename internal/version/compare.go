package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

// CheckConstraint reports whether toolVersion satisfies the semver constraint a run
// configuration declares, e.g. ">= 1.2, < 2". An empty constraint and the "main"
// development build always pass.
func CheckConstraint(toolVersion, constraint string) error {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" || toolVersion == "main" {
		return nil
	}

	required, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid version constraint %q", constraint)
	}

	current, err := semver.NewVersion(strings.TrimPrefix(toolVersion, "v"))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid tool version %q", toolVersion)
	}

	if !required.Check(current) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "configuration requires version %s but this is %s", constraint, toolVersion)
	}

	return nil
}
