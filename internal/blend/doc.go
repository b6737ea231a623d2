// Package blend implements the compositing operations the fabric tools are
// built from: the W3C "color" and "overlay" blend modes applied at an
// opacity, Porter-Duff operations on coverage surfaces, and texture tiling.
//
// Colour surfaces are *image.NRGBA (straight alpha); coverage surfaces are
// *image.Alpha where 255 means fully covered.
package blend
