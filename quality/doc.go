// Package quality scores a color-quantized image against its source.
//
// Scores are reported per demo pane so the engines' segmentations can be
// compared numerically as well as visually:
//
//   - MSE and PSNR over the RGB channels
//   - mean CIE76 ΔE in Lab space (github.com/lucasb-eyer/go-colorful)
//   - number of distinct colors, counted in a 24-bit roaring bitmap
package quality
