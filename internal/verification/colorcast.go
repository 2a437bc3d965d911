package verification

import (
	"image"

	"github.com/kozaktomas/face-consistency/internal/constants"
	"github.com/kozaktomas/face-consistency/internal/imaging"
)

// DetectColorCast reports whether most crops of a registration carry a strong color cast.
// A crop is cast-affected when its largest and smallest channel means differ by more
// than constants.ColorCastSpread. Nil crops are ignored; no valid crops means no cast.
func DetectColorCast(crops []*image.RGBA) bool {
	valid, affected := 0, 0
	for _, crop := range crops {
		if crop == nil {
			continue
		}
		valid++
		if channelSpread(crop) > constants.ColorCastSpread {
			affected++
		}
	}
	if valid == 0 {
		return false
	}
	return float64(affected)/float64(valid) > constants.ColorCastFraction
}

// channelSpread is the difference between the largest and smallest channel mean.
func channelSpread(crop *image.RGBA) float64 {
	means := imaging.ChannelMeans(crop)
	return max(means[0], means[1], means[2]) - min(means[0], means[1], means[2])
}
