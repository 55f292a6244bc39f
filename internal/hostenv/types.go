package hostenv

// OSFamily classifies the host operating system family.
type OSFamily string

const (
	// OSUbuntu is the only supported OS family.
	OSUbuntu OSFamily = "ubuntu"
	// OSOther is any unsupported OS family.
	OSOther OSFamily = "other"
)

// SessionMode classifies how the operator is attached to the host.
// SSH counts as a text session for every policy decision; it is kept
// distinct only for reporting.
type SessionMode string

const (
	// SessionGraphical is an active local graphical session.
	SessionGraphical SessionMode = "graphical"
	// SessionText is a local text console or an unclassified session.
	SessionText SessionMode = "text"
	// SessionSSH is a remote SSH session.
	SessionSSH SessionMode = "ssh"
)

// IsGraphical reports whether driver removal would tear down the
// operator's own session.
func (m SessionMode) IsGraphical() bool {
	return m == SessionGraphical
}

// GPUClass is the binary consumer-vs-professional partition used only to
// pick a driver package suffix.
type GPUClass string

const (
	// GPUDesktop is a consumer (GeForce) GPU.
	GPUDesktop GPUClass = "desktop"
	// GPUServer is a professional or datacenter GPU.
	GPUServer GPUClass = "server"
	// GPUUnknown means detection was skipped or inconclusive.
	GPUUnknown GPUClass = "unknown"
)

// HostProfile is the immutable snapshot of the execution environment,
// built once at the start of a run. SessionMode and GPUClass are derived
// independently and must never be conflated.
type HostProfile struct {
	OSFamily       OSFamily
	DistributionID string // e.g. "ubuntu2204"
	IsRoot         bool
	HasSudo        bool
	SessionMode    SessionMode
	GPUPresent     bool
	GPUClass       GPUClass
}
