package models

// LocatorStrategy names the technician lookup that produced a candidate.
type LocatorStrategy string

const (
	LocatorExactPincode  LocatorStrategy = "exact_pincode"
	LocatorCityState     LocatorStrategy = "city_state"
	LocatorPincodePrefix LocatorStrategy = "pincode_prefix"
)

// MatchStrategy names the matcher step that selected a request for a technician.
type MatchStrategy string

const (
	MatchExactPincode MatchStrategy = "exact_pincode"
	MatchSubstring    MatchStrategy = "substring"
	MatchPrefix       MatchStrategy = "prefix"
	MatchFallback     MatchStrategy = "fallback"
)

// AssignResult reports the outcome of an assignment attempt.
// Success=false means a store failure; Success=true with Assigned=false means
// no eligible technician was available.
type AssignResult struct {
	Success    bool               `json:"success"`
	Assigned   bool               `json:"assigned"`
	Message    string             `json:"message"`
	Strategy   LocatorStrategy    `json:"strategy,omitempty"`
	Technician *TechnicianProfile `json:"technician,omitempty"`
}
