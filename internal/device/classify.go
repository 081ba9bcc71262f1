package device

import (
	"regexp"
	"strings"
)

// #region gpu-lists

// highEndGPUs are discrete desktop parts and modern mobile GPUs.
var highEndGPUs = []string{
	"nvidia", "geforce", "rtx", "gtx", "quadro",
	"radeon rx", "radeon pro",
	"apple m1", "apple m2", "apple m3", "apple m4", "apple gpu",
	"adreno 6", "adreno 7", "adreno (tm) 6", "adreno (tm) 7",
	"mali-g7", "mali-g6",
	"arc a", "arc(tm)",
}

// lowEndGPUs are integrated, software and older mobile GPUs.
var lowEndGPUs = []string{
	"intel hd", "intel uhd", "intel(r) hd", "intel(r) uhd", "intel",
	"mali-4", "mali-t",
	"adreno 3", "adreno 4", "adreno 5",
	"adreno (tm) 3", "adreno (tm) 4", "adreno (tm) 5",
	"powervr", "sgx",
	"swiftshader", "llvmpipe", "software",
}

// probeShader is the minimal vertex shader compiled by the fallback probe.
const probeShader = `attribute vec4 position;
void main() { gl_Position = position; }`

// #endregion gpu-lists

// #region classify-renderer

// ClassifyRenderer matches a renderer string against the curated lists.
// The high list is checked first. matched is false for unknown strings.
func ClassifyRenderer(renderer string) (tier GPUTier, matched bool) {
	r := strings.ToLower(renderer)
	if r == "" {
		return "", false
	}
	for _, s := range highEndGPUs {
		if strings.Contains(r, s) {
			return GPUHigh, true
		}
	}
	for _, s := range lowEndGPUs {
		if strings.Contains(r, s) {
			return GPULow, true
		}
	}
	return "", false
}

// #endregion classify-renderer

// #region mobile-agent

var mobileAgent = regexp.MustCompile(`(?i)android|webos|iphone|ipad|ipod|blackberry|iemobile|opera mini`)

// IsMobileAgent reports whether ua identifies a known mobile OS or browser.
func IsMobileAgent(ua string) bool {
	return mobileAgent.MatchString(ua)
}

// #endregion mobile-agent
