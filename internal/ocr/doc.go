// Package ocr is the boundary to external text detection.
//
// Every backend produces the same shape of output: an ordered list of text
// annotations, each a description plus a four-vertex bounding polygon, in
// the layout used by Google Cloud Vision's TEXT_DETECTION feature. Index 0
// is always a full-page aggregate of all detected text; word-level
// annotations follow. Consumers conventionally skip index 0.
//
// # Backends
//
//   - VisionDetector: Cloud Vision images:annotate over REST (API key)
//   - TesseractDetector: local Tesseract via gosseract, word-level boxes
//   - GeminiDetector: a Gemini model prompted for normalized word boxes
//   - StaticDetector: recorded annotations, used for replays and tests
//
// Recorded Vision responses can be loaded with ParseAnnotations, which
// accepts a full batch response, a single response object, or a bare
// annotation array.
//
// # Coordinate System
//
// Vertices are pixel coordinates in the submitted image with (0,0) at the
// top-left. Vision may omit a coordinate when it is zero; decoding treats
// a missing value as 0.
//
// # Prerequisites
//
// TesseractDetector needs CGO and the Tesseract libraries:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Without CGO the Tesseract backend compiles to a stub that always errors.
package ocr
