package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/cubes/engine/core"
)

type VulkanRenderpassState int

const (
	RENDERPASS_STATE_READY VulkanRenderpassState = iota
	RENDERPASS_STATE_RECORDING
	RENDERPASS_STATE_IN_RENDER_PASS
	RENDERPASS_STATE_RECORDING_ENDED
	RENDERPASS_STATE_SUBMITTED
	RENDERPASS_STATE_NOT_ALLOCATED
)

type VulkanRenderpass struct {
	Handle vk.RenderPass

	X, Y, W, H float32
	R, G, B, A float32

	Depth   float32
	Stencil uint32

	// Samples used for the color and depth attachments. When greater
	// than one, a resolve attachment targeting the swapchain image is
	// part of the pass.
	Samples vk.SampleCountFlagBits

	State VulkanRenderpassState
}

func RenderpassCreate(context *VulkanContext, x, y, w, h, r, g, b, a, depth float32, stencil uint32) (*VulkanRenderpass, error) {
	renderpass := &VulkanRenderpass{
		X: x, Y: y, W: w, H: h,
		R: r, G: g, B: b, A: a,
		Depth:   depth,
		Stencil: stencil,
		Samples: context.Device.MSAASamples,
	}

	multisampled := renderpass.Samples != vk.SampleCount1Bit

	colorFinalLayout := vk.ImageLayoutPresentSrc
	if multisampled {
		colorFinalLayout = vk.ImageLayoutColorAttachmentOptimal
	}

	attachments := []vk.AttachmentDescription{
		// Color attachment.
		{
			Format:         context.Swapchain.ImageFormat.Format,
			Samples:        renderpass.Samples,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    colorFinalLayout,
		},
		// Depth attachment.
		{
			Format:         context.Device.DepthFormat,
			Samples:        renderpass.Samples,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorAttachmentReference := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	depthAttachmentReference := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{colorAttachmentReference},
		PDepthStencilAttachment: &depthAttachmentReference,
	}

	if multisampled {
		// Resolve attachment, the single sampled swapchain image.
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         context.Swapchain.ImageFormat.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		})
		subpass.PResolveAttachments = []vk.AttachmentReference{
			{
				Attachment: 2,
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			},
		}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create renderpass with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	renderpass.Handle = handle

	return renderpass, nil
}

func (renderpass *VulkanRenderpass) Destroy(context *VulkanContext) {
	if renderpass.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(context.Device.LogicalDevice, renderpass.Handle, context.Allocator)
		renderpass.Handle = vk.NullRenderPass
	}
}

func (renderpass *VulkanRenderpass) Begin(commandBuffer *VulkanCommandBuffer, frameBuffer vk.Framebuffer) {
	clearValues := []vk.ClearValue{
		vk.NewClearValue([]float32{renderpass.R, renderpass.G, renderpass.B, renderpass.A}),
		vk.NewClearDepthStencil(renderpass.Depth, renderpass.Stencil),
	}
	if renderpass.Samples != vk.SampleCount1Bit {
		// The resolve attachment is never loaded but the count must
		// match the attachment count.
		clearValues = append(clearValues, vk.NewClearValue([]float32{0, 0, 0, 0}))
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderpass.Handle,
		Framebuffer: frameBuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: int32(renderpass.X), Y: int32(renderpass.Y)},
			Extent: vk.Extent2D{Width: uint32(renderpass.W), Height: uint32(renderpass.H)},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (renderpass *VulkanRenderpass) End(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
