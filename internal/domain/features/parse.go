// Package features derives model features from raw laptop listings.
package features

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/okian/lapprice/internal/domain/model"
)

// Storage kinds recognised in the Memory field.
const (
	StorageSSD    = "ssd"
	StorageHDD    = "hdd"
	StorageFlash  = "flash"
	StorageHybrid = "hybrid"
)

// CPU categories.
const (
	CPUIntelI5 = iota
	CPUIntelI7
	CPUIntelOther
	CPUAMD
	CPUOther
)

// GPU categories.
const (
	GPUIntel  = "intel"
	GPUAMD    = "Amd"
	GPUNvidia = "Nividia"
	GPUOther  = "other"
)

// Operating system categories.
const (
	OSWindows10 = "Windows 10"
	OSWindows7  = "Windows 7"
	OSLinux     = "linux"
	OSMac       = "Macos"
	OSOther     = "other"
)

var errNoDigits = errors.New("no trailing digits")

// ParseRAM strips the "GB" unit and parses the remainder as an integer.
func ParseRAM(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(s, "GB", "")))
	if err != nil {
		return 0, malformed(model.ColRAM, s, err)
	}
	return v, nil
}

// ParseWeight strips the "kg" unit and parses the remainder as a float.
func ParseWeight(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, "kg", "")), 64)
	if err != nil {
		return 0, malformed(model.ColWeight, s, err)
	}
	return v, nil
}

// ParseResolution splits a screen description on "x". The width is the
// trailing digit run of the left part so qualifiers such as "Full HD" are
// ignored; the height is the whole right part.
func ParseResolution(s string) (x, y int, err error) {
	parts := strings.Split(s, "x")
	if len(parts) < 2 {
		return 0, 0, malformed(model.ColScreenResolution, s, errors.New(`missing "x" separator`))
	}

	left := parts[0]
	start := len(left)
	for start > 0 && left[start-1] >= '0' && left[start-1] <= '9' {
		start--
	}
	if start == len(left) {
		return 0, 0, malformed(model.ColScreenResolution, s, errNoDigits)
	}
	if x, err = strconv.Atoi(left[start:]); err != nil {
		return 0, 0, malformed(model.ColScreenResolution, s, err)
	}
	if y, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
		return 0, 0, malformed(model.ColScreenResolution, s, err)
	}
	return x, y, nil
}

// PPI returns pixels per inch for a resolution and diagonal size.
func PPI(x, y int, inches float64) (float64, error) {
	if !(inches > 0) {
		return 0, malformed(model.ColInches, strconv.FormatFloat(inches, 'f', -1, 64), errors.New("diagonal must be positive"))
	}
	fx, fy := float64(x), float64(y)
	return math.Sqrt(fx*fx+fy*fy) / inches, nil
}

// Touchscreen reports 1 when the screen description mentions a touchscreen.
func Touchscreen(s string) int { return flag(s, "Touchscreen") }

// IPS reports 1 when the screen description mentions an IPS panel.
func IPS(s string) int { return flag(s, "IPS") }

func flag(s, sub string) int {
	if strings.Contains(s, sub) {
		return 1
	}
	return 0
}

// CategorizeCPU maps a processor name to a category. i5 and i7 are checked
// before the vendor since their names also contain "intel".
func CategorizeCPU(s string) int {
	c := strings.ToLower(s)
	switch {
	case strings.Contains(c, "i5"):
		return CPUIntelI5
	case strings.Contains(c, "i7"):
		return CPUIntelI7
	case strings.Contains(c, "intel"):
		return CPUIntelOther
	case strings.Contains(c, "amd"):
		return CPUAMD
	}
	return CPUOther
}

// ExtractMemory returns the size in GB of the given storage kind in a
// free-form Memory description. The size is the token before the first token
// mentioning kind; "TB" becomes a thousand GB. Anything unparseable is 0.
func ExtractMemory(s, kind string) int {
	m := strings.ToLower(s)
	if !strings.Contains(m, kind) {
		return 0
	}
	tokens := strings.Fields(m)
	for i, tok := range tokens {
		if !strings.Contains(tok, kind) {
			continue
		}
		// The first token wraps around to the last one.
		prev := tokens[(i-1+len(tokens))%len(tokens)]
		prev = strings.ReplaceAll(prev, "gb", "")
		prev = strings.ReplaceAll(prev, "tb", "000")
		v, err := strconv.Atoi(prev)
		if err != nil {
			return 0
		}
		return v
	}
	return 0
}

// CategorizeGPU maps a graphics card name to a vendor category.
func CategorizeGPU(s string) string {
	g := strings.ToLower(s)
	switch {
	case strings.Contains(g, "intel"):
		return GPUIntel
	case strings.Contains(g, "amd"):
		return GPUAMD
	case strings.Contains(g, "nvidia"):
		return GPUNvidia
	}
	return GPUOther
}

// CategorizeOS maps an operating system name to a category.
func CategorizeOS(s string) string {
	o := strings.ToLower(s)
	switch {
	case strings.Contains(o, "windows 10"):
		return OSWindows10
	case strings.Contains(o, "windows 7"):
		return OSWindows7
	case strings.Contains(o, "linux"):
		return OSLinux
	case strings.Contains(o, "macos"):
		return OSMac
	}
	return OSOther
}
