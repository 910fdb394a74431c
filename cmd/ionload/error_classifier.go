// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"

	"github.com/ionphp/ionload/internal/issue"
	"github.com/ionphp/ionload/pkg/autoload"
	"github.com/ionphp/ionload/pkg/ionpkg"
	"github.com/ionphp/ionload/pkg/semver"
	"github.com/ionphp/ionload/pkg/settings"
)

// errClassNotFound is wrapped when at least one class did not resolve.
var errClassNotFound = errors.New("class not found")

// classifyError maps a command failure to an issue catalog ID, or 0 when no
// catalog entry applies. An ID set on an ActionableError wins.
func classifyError(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.IssueID != 0 {
		return ae.IssueID
	}

	switch {
	case errors.Is(err, settings.ErrParse):
		return issue.SettingsParseErrorId
	case errors.Is(err, semver.ErrInvalidManifest):
		return issue.VersionManifestInvalidId
	case errors.Is(err, ionpkg.ErrInvalidRoot):
		return issue.InvalidRootId
	case errors.Is(err, autoload.ErrInvalidAdapter):
		return issue.InvalidAdapterId
	case errors.Is(err, errClassNotFound):
		return issue.ClassNotFoundId
	default:
		return 0
	}
}
