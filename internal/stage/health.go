package stage

// Health is what `clipto status` shows for a stage: whether the clients it
// needs are configured, and why not when they are missing.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}
