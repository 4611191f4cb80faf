package fetch

import (
	"net/url"
	"strconv"
	"strings"
)

// OverlayKey identifies one overlay map. Every field is part of the fetch
// key, so equal keys produce equal URLs and are cache-equivalent upstream.
type OverlayKey struct {
	// Query is the opaque search text
	Query string `yaml:"query"`

	// Voxel is the resample spacing in mm
	Voxel float64 `yaml:"voxel"`

	// FWHM is the smoothing kernel width in mm
	FWHM float64 `yaml:"fwhm"`

	// Kernel is the kernel kind, e.g. "gauss"
	Kernel string `yaml:"kernel"`

	// Radius is the search radius in mm
	Radius float64 `yaml:"radius"`
}

// Empty reports whether the key has no query
func (k OverlayKey) Empty() bool {
	return strings.TrimSpace(k.Query) == ""
}

// URL builds {base}/query/{query}/nii?voxel=..&fwhm=..&kernel=..&r=..
// The same URL is used to load the overlay and offered as its download link.
// An empty query yields "".
func (k OverlayKey) URL(base string) string {
	if k.Empty() {
		return ""
	}
	params := url.Values{}
	params.Set("voxel", formatParam(k.Voxel))
	params.Set("fwhm", formatParam(k.FWHM))
	params.Set("kernel", k.Kernel)
	params.Set("r", formatParam(k.Radius))

	return strings.TrimRight(base, "/") + "/query/" + url.PathEscape(k.Query) + "/nii?" + params.Encode()
}

func formatParam(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
