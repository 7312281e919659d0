package tephra

import (
	"github.com/gogpu/tephra/core/destroy"
	"github.com/gogpu/tephra/core/track"
	"github.com/gogpu/tephra/core/transient"
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// ImageSetup describes an image to create.
type ImageSetup = hal.ImageSetup

// Image is an owned device image. Dropping it with Destroy queues the
// native handle for deferred destruction behind the device timeline.
type Image struct {
	device   *Device
	handle   hal.Image
	setup    ImageSetup
	released bool
}

// CreateImage creates an image with bound memory.
func (d *Device) CreateImage(setup *ImageSetup) (*Image, error) {
	handle, err := d.hal.CreateImage(setup)
	if err != nil {
		err = opError("Device.CreateImage", setup.DebugName, err)
		d.reportError(err)
		return nil, err
	}
	return &Image{device: d, handle: handle, setup: *setup}, nil
}

// WholeRange returns the subresource range covering the whole image.
func (i *Image) WholeRange() types.ImageSubresourceRange {
	return wholeRangeOf(&i.setup)
}

func wholeRangeOf(setup *ImageSetup) types.ImageSubresourceRange {
	return types.ImageSubresourceRange{
		AspectMask:      types.GetFormatClassProperties(setup.Format).Aspects,
		BaseMipLevel:    0,
		MipLevelCount:   setup.MipLevelCount,
		BaseArrayLayer:  0,
		ArrayLayerCount: setup.ArrayLayerCount,
	}
}

// FullView returns a view of the whole image.
func (i *Image) FullView() ImageView {
	return ImageView{image: i, rng: i.WholeRange(), format: i.setup.Format}
}

// View returns a view of a subresource range of the image.
func (i *Image) View(rng types.ImageSubresourceRange) ImageView {
	return ImageView{image: i, rng: rng, format: i.setup.Format}
}

// Destroy queues the image for deferred destruction once all device work
// tracked so far has finished. The Image must not be used afterwards.
func (i *Image) Destroy() {
	if i.released {
		return
	}
	i.released = true
	i.device.destructor.QueueForDestruction(
		destroy.Handle{Kind: destroy.KindImage, Raw: uint64(i.handle)},
		i.device.timeline.LastTrackedTimestamp())
}

// ImageView is a non-owning value addressing a subresource range of an
// image. Job-local views have no backing until their job is enqueued.
type ImageView struct {
	image  *Image
	local  *localImage
	rng    types.ImageSubresourceRange
	format types.Format
}

// IsNull reports whether the view addresses nothing.
func (v ImageView) IsNull() bool {
	return v.rng.ArrayLayerCount == 0 && v.rng.MipLevelCount == 0
}

// IsJobLocal reports whether the view's backing is bound only at job
// enqueue time.
func (v ImageView) IsJobLocal() bool {
	return v.local != nil
}

// Format returns the view's format.
func (v ImageView) Format() types.Format {
	return v.format
}

// WholeRange returns the view's whole extent in view-relative
// coordinates, suitable for the Cmd* range parameters.
func (v ImageView) WholeRange() types.ImageSubresourceRange {
	return types.ImageSubresourceRange{
		AspectMask:      v.rng.AspectMask,
		MipLevelCount:   v.rng.MipLevelCount,
		ArrayLayerCount: v.rng.ArrayLayerCount,
	}
}

// SubView narrows the view to a subresource range relative to the view.
func (v ImageView) SubView(rng types.ImageSubresourceRange) ImageView {
	result := v
	result.rng = types.ImageSubresourceRange{
		AspectMask:      rng.AspectMask & v.rng.AspectMask,
		BaseMipLevel:    v.rng.BaseMipLevel + rng.BaseMipLevel,
		MipLevelCount:   rng.MipLevelCount,
		BaseArrayLayer:  v.rng.BaseArrayLayer + rng.BaseArrayLayer,
		ArrayLayerCount: rng.ArrayLayerCount,
	}
	return result
}

// resolve returns the native handle. It is null for an unbound job-local
// view.
func (v ImageView) resolve() hal.Image {
	if v.local != nil {
		return v.local.resolved
	}
	if v.image != nil {
		return v.image.handle
	}
	return 0
}

// accessRange converts a range relative to the view into an absolute
// access range of the underlying image.
func (v ImageView) accessRange(rng types.ImageSubresourceRange) track.ImageAccessRange {
	result := track.NewImageAccessRange(rng)
	result.BaseArrayLayer += v.rng.BaseArrayLayer
	result.MipLevelMask <<= v.rng.BaseMipLevel
	return result
}

// localImage is the record of one job-local image allocation, resolved at
// enqueue time by the transient allocator.
type localImage struct {
	setup    ImageSetup
	lifetime transient.Lifetime
	resolved hal.Image
}
