package constant

const (
	// DefaultDirMode is the default file mode to apply to created directories.
	DefaultDirMode = 0o755
	// DefaultFileMode is the default file mode to apply to created files.
	DefaultFileMode = 0o644
	// DefaultIconName is the base name of the icon container when an icon set
	// doesn't provide one. It is also the value written to CFBundleIconName.
	DefaultIconName = "AppIcon"
	// ContainerExtension is the file extension of the appearance-tagged icon
	// container.
	ContainerExtension = ".icns"
	// AssetCatalogFileName is the compiled asset catalog inside Resources/.
	AssetCatalogFileName = "Assets.car"
	// InfoPlistFileName is the name of the bundle manifest inside Contents/.
	InfoPlistFileName = "Info.plist"
	// ContentsDirName is the top-level directory of a macOS bundle.
	ContentsDirName = "Contents"
	// ResourcesDirName is the resources directory inside Contents/.
	ResourcesDirName = "Resources"
	// IconRequirementsKey is the Info.plist dictionary that records, per icon
	// resource path, the minimum OS version its appearance variants need.
	IconRequirementsKey = "IconAppearanceRequirements"
	// MinimumSystemVersionKey is the key used for OS version floors, both at the
	// top level of Info.plist and inside IconRequirementsKey entries.
	MinimumSystemVersionKey = "LSMinimumSystemVersion"
	// EnvPrefix prefixes every environment variable read by the CLI.
	EnvPrefix = "ICONBUNDLE_"
)
