// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"fmt"

	packageurl "github.com/package-url/packageurl-go"
)

// PURL returns the package URL of a crate, pkg:cargo/name[@version].
func PURL(name, version string) string {
	return packageurl.NewPackageURL(packageurl.TypeCargo, "", name, version, nil, "").ToString()
}

// ParsePURL extracts name and version from a cargo package URL.
func ParsePURL(purl string) (name, version string, err error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return "", "", fmt.Errorf("parsing purl %q: %w", purl, err)
	}
	if p.Type != packageurl.TypeCargo {
		return "", "", fmt.Errorf("parsing purl %q: type %q is not cargo", purl, p.Type)
	}
	return p.Name, p.Version, nil
}
