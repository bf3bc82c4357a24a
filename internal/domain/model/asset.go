package model

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// AssetSlot names one of the three images that make up a preview card.
type AssetSlot string

const (
	SlotInner   AssetSlot = "inner"
	SlotOuter   AssetSlot = "outer"
	SlotOverlay AssetSlot = "overlay"
)

// AssetSlots lists the slots in upload order.
var AssetSlots = []AssetSlot{SlotInner, SlotOuter, SlotOverlay}

// ParseAssetSlot converts a string to an AssetSlot.
func ParseAssetSlot(s string) (AssetSlot, bool) {
	for _, slot := range AssetSlots {
		if string(slot) == s {
			return slot, true
		}
	}
	return "", false
}

// AssetSet maps slots to image data URLs. An absent or empty entry is an
// unpopulated slot.
type AssetSet map[AssetSlot]string

// Populated returns the populated slots in upload order.
func (a AssetSet) Populated() []AssetSlot {
	var slots []AssetSlot
	for _, slot := range AssetSlots {
		if strings.TrimSpace(a[slot]) != "" {
			slots = append(slots, slot)
		}
	}
	return slots
}

// Missing returns the unpopulated slots in upload order.
func (a AssetSet) Missing() []AssetSlot {
	var slots []AssetSlot
	for _, slot := range AssetSlots {
		if strings.TrimSpace(a[slot]) == "" {
			slots = append(slots, slot)
		}
	}
	return slots
}

// ImageAsset is a decoded slot ready for upload.
type ImageAsset struct {
	Slot      AssetSlot
	MediaType string
	Content   []byte
}

// DecodeAsset parses a base64 data URL ("data:image/png;base64,...") into an ImageAsset.
func DecodeAsset(slot AssetSlot, dataURL string) (ImageAsset, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(dataURL), "data:")
	if !ok {
		return ImageAsset{}, fmt.Errorf("%w: %s: not a data URL", ErrInvalidAsset, slot)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return ImageAsset{}, fmt.Errorf("%w: %s: data URL has no payload", ErrInvalidAsset, slot)
	}

	mediaType, params, _ := strings.Cut(meta, ";")
	if !strings.HasPrefix(mediaType, "image/") {
		return ImageAsset{}, fmt.Errorf("%w: %s: media type %q is not an image", ErrInvalidAsset, slot, mediaType)
	}
	if !strings.Contains(params, "base64") {
		return ImageAsset{}, fmt.Errorf("%w: %s: data URL must be base64 encoded", ErrInvalidAsset, slot)
	}

	content, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ImageAsset{}, fmt.Errorf("%w: %s: %v", ErrInvalidAsset, slot, err)
	}
	if len(content) == 0 {
		return ImageAsset{}, fmt.Errorf("%w: %s: empty image", ErrInvalidAsset, slot)
	}

	return ImageAsset{Slot: slot, MediaType: mediaType, Content: content}, nil
}

// EncodeDataURL builds a base64 data URL for content of the given media type.
func EncodeDataURL(mediaType string, content []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(content)
}
