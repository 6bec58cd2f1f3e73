package view

import (
	"errors"
	"fmt"

	"tools.zach/dev/emuconf/internal/resolver"
	"tools.zach/dev/emuconf/internal/setting"
)

// ErrUnknownMenu is returned by [Menu] for tags it has no screen for.
var ErrUnknownMenu = errors.New("unknown menu")

// Sections used by the catalog.
const (
	sectionCore         = "Core"
	sectionInterface    = "Interface"
	sectionGFXSettings  = "Settings"
	sectionEnhancements = "Enhancements"
	sectionHacks        = "Hacks"
	sectionStereoscopy  = "Stereoscopy"
	sectionBindings     = "Android"
	sectionControls     = "Controls"
)

// Tags lists every fixed menu followed by the numbered controller menus.
func Tags() []MenuTag {
	tags := []MenuTag{
		MenuConfig, MenuGeneral, MenuInterface, MenuGraphics, MenuEnhancements,
		MenuHacks, MenuStereoscopy, MenuGCPadTypes, MenuWiimoteTypes, MenuGameControls,
	}
	for n := 1; n <= maxPorts; n++ {
		tags = append(tags, GCPad(n), GCAdapter(n), Wiimote(n))
	}
	return tags
}

// Menu returns the descriptors of one settings screen in display order.
func Menu(tag MenuTag) ([]Descriptor, error) {
	switch tag {
	case MenuConfig:
		return configMenu(), nil
	case MenuGeneral:
		return generalMenu(), nil
	case MenuInterface:
		return interfaceMenu(), nil
	case MenuGraphics:
		return graphicsMenu(), nil
	case MenuEnhancements:
		return enhancementsMenu(), nil
	case MenuHacks:
		return hacksMenu(), nil
	case MenuStereoscopy:
		return stereoscopyMenu(), nil
	case MenuGCPadTypes:
		return gcPadTypesMenu(), nil
	case MenuWiimoteTypes:
		return wiimoteTypesMenu(), nil
	case MenuGameControls:
		return gameControlsMenu(), nil
	}

	prefix, n, ok := tag.port()
	if ok {
		switch prefix {
		case "gcpad":
			return gcPadMenu(n), nil
		case "gcadapter":
			return gcAdapterMenu(n), nil
		case "wiimote":
			return wiimoteMenu(n), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMenu, tag)
}

// ///////////////////////////////////////////////
// Builders
// ///////////////////////////////////////////////

func header(title string) Descriptor {
	return Descriptor{Kind: Header, Title: title}
}

func submenu(title string, tag MenuTag) Descriptor {
	return Descriptor{Kind: Submenu, Title: title, Submenu: tag}
}

func checkBox(file resolver.FileID, section, key, title, desc string, def bool) Descriptor {
	return Descriptor{Kind: CheckBox, File: file, Section: section, Key: key, Title: title, Description: desc, Default: setting.Bool(def)}
}

func slider(file resolver.FileID, section, key, title, desc string, hi int64, units string, def int64) Descriptor {
	return Descriptor{Kind: Slider, File: file, Section: section, Key: key, Title: title, Description: desc, Max: hi, Units: units, Default: setting.Int(def)}
}

func choice(file resolver.FileID, section, key, title, desc string, def int64, choices ...Choice) Descriptor {
	return Descriptor{Kind: SingleChoice, File: file, Section: section, Key: key, Title: title, Description: desc, Default: setting.Int(def), Choices: choices}
}

func stringChoice(file resolver.FileID, section, key, title, desc, def string, choices ...Choice) Descriptor {
	return Descriptor{Kind: StringSingleChoice, File: file, Section: section, Key: key, Title: title, Description: desc, Default: setting.String(def), Choices: choices}
}

func binding(prefix string, port int, title string) Descriptor {
	return Descriptor{
		Kind:    InputBinding,
		File:    resolver.Dolphin,
		Section: sectionBindings,
		Key:     fmt.Sprintf("%s%d", prefix, port),
		Title:   title,
		Default: setting.String(""),
	}
}

func ic(label string, v int64) Choice { return Choice{Label: label, Value: setting.Int(v)} }

func sc(label, v string) Choice { return Choice{Label: label, Value: setting.String(v)} }

// ///////////////////////////////////////////////
// Config
// ///////////////////////////////////////////////

func configMenu() []Descriptor {
	return []Descriptor{
		submenu("General", MenuGeneral),
		submenu("Interface", MenuInterface),
		submenu("Graphics", MenuGraphics),
		submenu("GameCube Controllers", MenuGCPadTypes),
		submenu("Wii Remotes", MenuWiimoteTypes),
	}
}

func generalMenu() []Descriptor {
	slotDevices := []Choice{
		ic("Nothing", 255), ic("Dummy", 1), ic("Memory Card", 8), ic("GCI Folder", 10),
	}
	return []Descriptor{
		choice(resolver.Dolphin, sectionCore, "CPUCore", "CPU Core", "", 4,
			ic("Interpreter", 0), ic("JIT ARM64 Recompiler", 4), ic("Cached Interpreter", 5)),
		checkBox(resolver.Dolphin, sectionCore, "CPUThread", "Dual Core",
			"Split the CPU and GPU emulation across two threads. Faster, but may cause glitches.", true),
		checkBox(resolver.Dolphin, sectionCore, "OverclockEnable", "Enable Emulated CPU Clock Override",
			"Adjust the emulated CPU's clock rate. Values below 100% lower demand on the host.", false),
		slider(resolver.Dolphin, sectionCore, "Overclock", "Emulated CPU Clock Speed",
			"Changes the emulated CPU's clock rate relative to the console.", 400, "%", 100),
		slider(resolver.Dolphin, sectionCore, "EmulationSpeed", "Speed Limit", "", 200, "%", 100),
		{
			Kind: SingleChoice, File: resolver.Dolphin, Section: sectionCore, Key: "SlotA",
			Title: "GameCube Slot A Device", Default: setting.Int(8), Choices: slotDevices,
		},
		{
			Kind: SingleChoice, File: resolver.Dolphin, Section: sectionCore, Key: "SlotB",
			Title: "GameCube Slot B Device", Default: setting.Int(255), Choices: slotDevices,
		},
		checkBox(resolver.Dolphin, sectionCore, "WiimoteContinuousScanning", "Wii Remote Continuous Scanning",
			"Keep scanning for real Wii Remotes while a game runs.", true),
		checkBox(resolver.Dolphin, sectionCore, "WiimoteEnableSpeaker", "Wii Remote Speaker",
			"Play the Wii Remote speaker sound through the host.", true),
		checkBox(resolver.Dolphin, sectionCore, "AudioStretch", "Audio Stretching",
			"Stretch audio to reduce stuttering at the cost of latency.", false),
		checkBox(resolver.Dolphin, sectionCore, "FastDiscSpeed", "Emulate Disc Speed",
			"Limit reads to the console's disc speed. Disabling shortens load times but can break games.", true),
		checkBox(resolver.Dolphin, sectionCore, "Fastmem", "Disable Fastmem",
			"Route every memory access through the slow path. Only useful for debugging.", false),
	}
}

func interfaceMenu() []Descriptor {
	return []Descriptor{
		checkBox(resolver.Dolphin, sectionInterface, "UsePanicHandlers", "Use Panic Handlers",
			"Show a dialog when a serious error occurs.", true),
		checkBox(resolver.Dolphin, sectionInterface, "OnScreenDisplayMessages", "Show On-Screen Messages",
			"Display messages over the emulation screen.", true),
	}
}

// ///////////////////////////////////////////////
// Graphics
// ///////////////////////////////////////////////

func graphicsMenu() []Descriptor {
	return []Descriptor{
		header("General"),
		stringChoice(resolver.Dolphin, sectionCore, "GFXBackend", "Video Backend",
			"Select the API used for graphics rendering.", "OGL",
			sc("OpenGL", "OGL"), sc("Vulkan", "Vulkan"), sc("Software Renderer", "Software Renderer"), sc("Null", "Null")),
		checkBox(resolver.GFX, sectionGFXSettings, "ShowFPS", "Show FPS",
			"Show the number of frames rendered per second.", false),
		choice(resolver.GFX, sectionGFXSettings, "ShaderCompilationMode", "Shader Compilation Mode",
			"Choose how shaders are compiled. Asynchronous modes trade visual accuracy for fewer stutters.", 0,
			ic("Synchronous", 0), ic("Synchronous (Ubershaders)", 1), ic("Asynchronous (Ubershaders)", 2), ic("Asynchronous (Skip Drawing)", 3)),
		checkBox(resolver.GFX, sectionGFXSettings, "WaitForShadersBeforeStarting", "Compile Shaders Before Starting", "", false),
		choice(resolver.GFX, sectionGFXSettings, "AspectRatio", "Aspect Ratio",
			"Select the aspect ratio to render at.", 0,
			ic("Auto", 0), ic("Force 16:9", 1), ic("Force 4:3", 2), ic("Stretch to Window", 3)),
		header("Enhancements and Hacks"),
		submenu("Enhancements", MenuEnhancements),
		submenu("Hacks", MenuHacks),
		{
			Kind: Submenu, File: resolver.GFX, Section: sectionStereoscopy, Key: "StereoMode",
			Title: "Stereoscopy", Description: "Stereoscopic 3D settings.", Submenu: MenuStereoscopy,
		},
	}
}

func enhancementsMenu() []Descriptor {
	return []Descriptor{
		choice(resolver.GFX, sectionGFXSettings, "InternalResolution", "Internal Resolution",
			"Render at a multiple of the native resolution.", 1,
			ic("1x Native (640x528)", 1), ic("2x Native (1280x1056) for 720p", 2), ic("3x Native (1920x1584) for 1080p", 3),
			ic("4x Native (2560x2112) for 1440p", 4), ic("5x Native (3200x2640)", 5), ic("6x Native (3840x3168) for 4K", 6)),
		choice(resolver.GFX, sectionGFXSettings, "MSAA", "Anti-Aliasing",
			"Number of samples used for multisample anti-aliasing.", 1,
			ic("None", 1), ic("2x", 2), ic("4x", 4), ic("8x", 8)),
		choice(resolver.GFX, sectionEnhancements, "MaxAnisotropy", "Anisotropic Filtering",
			"Sharpen textures viewed at oblique angles.", 0,
			ic("1x", 0), ic("2x", 1), ic("4x", 2), ic("8x", 3), ic("16x", 4)),
		stringChoice(resolver.GFX, sectionEnhancements, "PostProcessingShader", "Post-Processing Effect",
			"Apply a post-processing shader after each frame.", "",
			sc("Off", "")),
		checkBox(resolver.GFX, sectionHacks, "EFBScaledCopy", "Scaled EFB Copy",
			"Keep EFB copies at the internal resolution.", true),
		checkBox(resolver.GFX, sectionGFXSettings, "EnablePixelLighting", "Per-Pixel Lighting",
			"Compute lighting per pixel instead of per vertex.", false),
		checkBox(resolver.GFX, sectionEnhancements, "ForceFiltering", "Force Texture Filtering",
			"Filter all textures, including ones the game asked not to filter.", false),
		checkBox(resolver.GFX, sectionGFXSettings, "Force24BitColor", "Force 24-Bit Color",
			"Remove banding in some games by rendering with 24-bit color.", true),
		checkBox(resolver.GFX, sectionGFXSettings, "DisableFog", "Disable Fog",
			"Turn off fog. Some games rely on fog for correct visuals.", false),
		checkBox(resolver.GFX, sectionGFXSettings, "DisableCopyFilter", "Disable Copy Filter",
			"Skip the blur some games apply to EFB copies.", false),
	}
}

func hacksMenu() []Descriptor {
	return []Descriptor{
		header("Embedded Frame Buffer"),
		checkBox(resolver.GFX, sectionHacks, "EFBAccessEnable", "Skip EFB Access from CPU",
			"Ignore CPU reads and writes to the EFB. Faster, but breaks some effects.", false),
		checkBox(resolver.GFX, sectionHacks, "EFBEmulateFormatChanges", "Ignore Format Changes",
			"Ignore changes to the EFB format. Faster in most games.", true),
		checkBox(resolver.GFX, sectionHacks, "EFBToTextureEnable", "Store EFB Copies to Texture Only",
			"Keep EFB copies on the GPU instead of writing them back to RAM.", true),
		checkBox(resolver.GFX, sectionHacks, "BBoxEnable", "Disable Bounding Box",
			"Disable bounding box emulation. A few games need it.", true),
		header("Texture Cache"),
		choice(resolver.GFX, sectionGFXSettings, "SafeTextureCacheColorSamples", "Texture Cache Accuracy",
			"Lower accuracy samples fewer texels when checking for texture changes.", 128,
			ic("Safe", 0), ic("Medium", 512), ic("Fast", 128)),
		checkBox(resolver.GFX, sectionGFXSettings, "EnableGPUTextureDecoding", "GPU Texture Decoding",
			"Decode textures on the GPU.", false),
		checkBox(resolver.GFX, sectionHacks, "FastTextureSampling", "Manual Texture Sampling",
			"Sample textures in shaders for accuracy instead of using hardware samplers.", false),
		header("External Frame Buffer"),
		checkBox(resolver.GFX, sectionHacks, "XFBToTextureEnable", "Store XFB Copies to Texture Only",
			"Keep XFB copies on the GPU.", true),
		checkBox(resolver.GFX, sectionHacks, "ImmediateXFBEnable", "Immediately Present XFB",
			"Display XFB copies as soon as they are made. Lowers latency, may cause tearing.", false),
		header("Other"),
		checkBox(resolver.GFX, sectionHacks, "FastDepthCalc", "Fast Depth Calculation",
			"Use a less accurate but faster depth calculation.", true),
	}
}

func stereoscopyMenu() []Descriptor {
	return []Descriptor{
		choice(resolver.GFX, sectionStereoscopy, "StereoMode", "Stereoscopy Mode",
			"Select the stereoscopic 3D output mode.", 0,
			ic("Off", 0), ic("Side-by-Side", 1), ic("Top-and-Bottom", 2), ic("Anaglyph", 3)),
		slider(resolver.GFX, sectionStereoscopy, "StereoDepth", "Depth",
			"Distance between the virtual cameras.", 100, "%", 20),
		slider(resolver.GFX, sectionStereoscopy, "StereoConvergencePercentage", "Convergence",
			"Distance to the virtual screen plane.", 200, "%", 0),
		checkBox(resolver.GFX, sectionStereoscopy, "StereoSwapEyes", "Swap Eyes",
			"Swap the left and right images.", false),
	}
}

// ///////////////////////////////////////////////
// Controllers
// ///////////////////////////////////////////////

func gcPadTypesMenu() []Descriptor {
	var out []Descriptor
	for n := 1; n <= maxPorts; n++ {
		d := choice(resolver.Dolphin, sectionCore, fmt.Sprintf("SIDevice%d", n-1),
			fmt.Sprintf("GameCube Controller %d", n), "", 0,
			ic("Disabled", 0), ic("Emulated", 6), ic("GameCube Adapter", 12))
		d.Submenu = GCPad(n)
		out = append(out, d)
	}
	return out
}

func wiimoteTypesMenu() []Descriptor {
	var out []Descriptor
	for n := 1; n <= maxPorts; n++ {
		d := choice(resolver.WiimoteNew, fmt.Sprintf("Wiimote%d", n), "Source",
			fmt.Sprintf("Wii Remote %d", n), "", 0,
			ic("Disabled", 0), ic("Emulated", 1), ic("Real Wii Remote", 2))
		d.Submenu = Wiimote(n)
		out = append(out, d)
	}
	return out
}

func gcPadMenu(n int) []Descriptor {
	port := n - 1
	return []Descriptor{
		header("Buttons"),
		binding("InputA_", port, "A"),
		binding("InputB_", port, "B"),
		binding("InputX_", port, "X"),
		binding("InputY_", port, "Y"),
		binding("InputZ_", port, "Z"),
		binding("InputStart_", port, "Start"),
		header("Control Stick"),
		binding("MainUp_", port, "Up"),
		binding("MainDown_", port, "Down"),
		binding("MainLeft_", port, "Left"),
		binding("MainRight_", port, "Right"),
		header("C Stick"),
		binding("CStickUp_", port, "Up"),
		binding("CStickDown_", port, "Down"),
		binding("CStickLeft_", port, "Left"),
		binding("CStickRight_", port, "Right"),
		header("Triggers"),
		binding("InputL_", port, "L"),
		binding("InputR_", port, "R"),
		header("D-Pad"),
		binding("DPadUp_", port, "Up"),
		binding("DPadDown_", port, "Down"),
		binding("DPadLeft_", port, "Left"),
		binding("DPadRight_", port, "Right"),
	}
}

func gcAdapterMenu(n int) []Descriptor {
	port := n - 1
	return []Descriptor{
		checkBox(resolver.Dolphin, sectionCore, fmt.Sprintf("AdapterRumble%d", port), "Enable Rumble",
			"Pass rumble through to the controller in this port.", false),
		checkBox(resolver.Dolphin, sectionCore, fmt.Sprintf("SimulateKonga%d", port), "Bongo Controller",
			"Treat the controller in this port as DK Bongos.", false),
	}
}

// Wii Remote bindings continue the port numbering after the four GameCube
// ports, so remote 1 uses suffix 4.
func wiimoteMenu(n int) []Descriptor {
	port := n + maxPorts - 1
	return []Descriptor{
		stringChoice(resolver.WiimoteNew, fmt.Sprintf("Wiimote%d", n), "Extension", "Extension",
			"Accessory plugged into the Wii Remote.", "None",
			sc("None", "None"), sc("Nunchuk", "Nunchuk"), sc("Classic Controller", "Classic"),
			sc("Guitar", "Guitar"), sc("Drums", "Drums"), sc("Turntable", "Turntable")),
		header("Buttons"),
		binding("WiimoteA_", port, "A"),
		binding("WiimoteB_", port, "B"),
		binding("Wiimote1_", port, "1"),
		binding("Wiimote2_", port, "2"),
		binding("WiimoteMinus_", port, "-"),
		binding("WiimotePlus_", port, "+"),
		binding("WiimoteHome_", port, "Home"),
		header("IR"),
		binding("IRUp_", port, "Up"),
		binding("IRDown_", port, "Down"),
		binding("IRLeft_", port, "Left"),
		binding("IRRight_", port, "Right"),
		binding("IRForward_", port, "Forward"),
		binding("IRBackward_", port, "Backward"),
		binding("IRHide_", port, "Hide"),
		header("Swing"),
		binding("SwingUp_", port, "Up"),
		binding("SwingDown_", port, "Down"),
		binding("SwingLeft_", port, "Left"),
		binding("SwingRight_", port, "Right"),
		binding("SwingForward_", port, "Forward"),
		binding("SwingBackward_", port, "Backward"),
		header("Tilt"),
		binding("TiltForward_", port, "Forward"),
		binding("TiltBackward_", port, "Backward"),
		binding("TiltLeft_", port, "Left"),
		binding("TiltRight_", port, "Right"),
		binding("TiltModifier_", port, "Modifier"),
		header("Shake"),
		binding("ShakeX_", port, "X"),
		binding("ShakeY_", port, "Y"),
		binding("ShakeZ_", port, "Z"),
		header("D-Pad"),
		binding("WiimoteUp_", port, "Up"),
		binding("WiimoteDown_", port, "Down"),
		binding("WiimoteLeft_", port, "Left"),
		binding("WiimoteRight_", port, "Right"),
	}
}

// gameControlsMenu holds the per-game IR pointer sensitivity. These keys are
// only meaningful in the custom-game file.
func gameControlsMenu() []Descriptor {
	return []Descriptor{
		slider(resolver.Dolphin, sectionControls, "IRPitch", "Vertical Sensitivity",
			"Total vertical angle the pointer covers.", 100, "°", 20),
		slider(resolver.Dolphin, sectionControls, "IRYaw", "Horizontal Sensitivity",
			"Total horizontal angle the pointer covers.", 100, "°", 25),
		slider(resolver.Dolphin, sectionControls, "IRVerticalOffset", "Vertical Offset",
			"Shift the pointer's resting position up or down.", 50, "", 10),
	}
}
