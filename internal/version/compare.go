package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// CheckConstraint checks that engineVersion satisfies the semver constraint declared by a
// strategy file, e.g. ">= 1.0.0, < 2.0.0".
//
// Rules:
//   - an empty constraint accepts every engine
//   - a "main" engine (development build) skips the check
//   - prerelease engines are compared by their release version
func CheckConstraint(engineVersion, constraint string) error {
	engineVersion = strings.TrimPrefix(strings.TrimSpace(engineVersion), "v")
	constraint = strings.TrimSpace(constraint)

	if constraint == "" || engineVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine version '%s': %w", engineVersion, err)
	}

	constraints, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, fmt.Sprintf("invalid engine constraint '%s'", constraint), err)
	}

	release, err := engineSemver.SetPrerelease("")
	if err != nil {
		return fmt.Errorf("invalid engine version '%s': %w", engineVersion, err)
	}

	if ok, reasons := constraints.Validate(&release); !ok {
		return errors.Newf(errors.ErrCodeVersionMismatch, "engine %s does not satisfy '%s': %v",
			engineSemver.String(), constraint, reasons)
	}

	return nil
}

// Check checks the running engine against constraint.
func Check(constraint string) error {
	return CheckConstraint(GetVersion(), constraint)
}
