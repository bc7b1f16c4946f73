package connector

import "encoding/json"

// Record is the persisted form of a connector instance. Live client handles
// never round-trip; only the identity, method, config, and target do.
type Record struct {
	Name         string          `json:"name"`
	TypeID       string          `json:"type_id"`
	AuthMethod   string          `json:"auth_method"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id,omitempty"`
	Config       json.RawMessage `json:"config"`
}

// Record produces the storage form of the instance. The config payload is
// the sensitive encoding (cleartext with secret markers); anything shown to
// humans must go through the default masked JSON instead.
func (c *Connector) Record(name string) (Record, error) {
	cfg, err := c.Config().EncodeSensitive()
	if err != nil {
		return Record{}, err
	}
	return Record{
		Name:         name,
		TypeID:       c.spec.TypeID,
		AuthMethod:   c.authMethod.MethodID,
		ResourceType: c.resourceType.ResourceTypeID,
		ResourceID:   c.resourceID,
		Config:       cfg,
	}, nil
}

// MaskedConfig returns the display form of a stored config payload: secret
// fields replaced by the mask, plain fields verbatim.
func MaskedConfig(payload json.RawMessage) (map[string]string, error) {
	var fields map[string]sensitiveField
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, &ConfigurationError{Reason: "malformed stored config", Err: err}
	}
	out := make(map[string]string, len(fields))
	for name, f := range fields {
		if f.Secret {
			out[name] = secretMask
			continue
		}
		out[name] = f.Value
	}
	return out, nil
}

// FromRecord rebuilds a live connector instance from its storage form. The
// config is re-validated against the registered schema, so records written
// by an older schema fail loudly instead of half-loading.
func (r *Registry) FromRecord(rec Record) (*Connector, error) {
	reg, err := r.Type(rec.TypeID)
	if err != nil {
		return nil, err
	}
	method, ok := reg.Spec.AuthMethod(rec.AuthMethod)
	if !ok {
		return nil, &ConfigurationError{Reason: "stored record names unknown auth method " + rec.AuthMethod}
	}
	cfg, err := DecodeSensitive(method.Schema, rec.Config)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string)
	for _, f := range method.Schema.Fields {
		if cfg.Has(f.Name) {
			values[f.Name] = cfg.SecretValue(f.Name).Reveal()
		}
	}
	return r.New(rec.TypeID, rec.AuthMethod, values, rec.ResourceType, rec.ResourceID)
}
