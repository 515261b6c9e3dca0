package dto

type PluginInfo struct {
	Name         string
	Version      string
	Enabled      bool
	Binary       string
	Capabilities []string
}

type DoctorResult struct {
	Name            string
	ChecksumValid   bool
	BinaryReachable bool
	LifecycleOK     bool
	Labels          []string
	Error           string
}

type ClassifyInput struct {
	PluginName   string
	ImageDataURI string
}

type ClassifyOutput struct {
	PluginName string
	Label      string
	Confidence float64
}
