package domain

// SignatureID is the pseudonymous identifier of a device.
type SignatureID string

func (s SignatureID) IsZero() bool {
	return s == ""
}

func (s SignatureID) String() string {
	return string(s)
}
