package mapview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	badgeWidth  = 128
	badgeHeight = 64
)

// RenderBadge draws a small monochrome status image of the current position.
func RenderBadge(s State) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, badgeWidth, badgeHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
	}

	if !s.HasFix {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString("GPS Position")
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString("Waiting...")
		return img
	}

	latDir := "N"
	lat := s.Center.Latitude
	if lat < 0 {
		latDir = "S"
		lat = -lat
	}
	drawer.Dot = fixed.P(0, 13)
	drawer.DrawString(fmt.Sprintf("%.4f%s", lat, latDir))

	lonDir := "E"
	lon := s.Center.Longitude
	if lon < 0 {
		lonDir = "W"
		lon = -lon
	}
	drawer.Dot = fixed.P(0, 26)
	drawer.DrawString(fmt.Sprintf("%.4f%s", lon, lonDir))

	drawer.Dot = fixed.P(0, 39)
	drawer.DrawString(fmt.Sprintf("Alt: %.0fm", s.Altitude))

	drawer.Dot = fixed.P(0, 52)
	drawer.DrawString(fmt.Sprintf("Zoom %.0f", s.Zoom))

	return img
}

func WriteBadgePNG(w io.Writer, s State) error {
	return png.Encode(w, RenderBadge(s))
}
