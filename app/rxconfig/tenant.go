package rxconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"slices"

	"github.com/panicnic/panicrx/core/lcore"
	"go.uber.org/zap"
)

// TenantConfig describes one tenant.
type TenantConfig struct {
	// Key is the tenant's key in the tenantconfig object.
	Key string `json:"-"`

	// ID is the tenant ID, which is also the receive queue index.
	ID int `json:"id"`

	Priority int `json:"prio"`

	// OffloadChain is an ordered list of offload engine stage IDs, possibly empty.
	OffloadChain []int `json:"offloadchain"`

	// CoreMask is a hexadecimal CPU mask for the tenant's poller, possibly empty.
	CoreMask string `json:"coremask"`

	// Endpoint is the tenant's IP address.
	Endpoint string `json:"ip"`

	Port int `json:"port"`
}

// Mask parses CoreMask.
func (t TenantConfig) Mask() (lcore.Mask, error) {
	return lcore.ParseMask(t.CoreMask)
}

// EndpointAddr parses Endpoint.
func (t TenantConfig) EndpointAddr() (netip.Addr, error) {
	return netip.ParseAddr(t.Endpoint)
}

// ZapFields returns zap fields for logging.
func (t TenantConfig) ZapFields() []zap.Field {
	return []zap.Field{
		zap.String("key", t.Key),
		zap.Int("id", t.ID),
		zap.Int("prio", t.Priority),
		zap.Ints("offloadchain", t.OffloadChain),
		zap.String("coremask", t.CoreMask),
		zap.String("ip", t.Endpoint),
		zap.Int("port", t.Port),
	}
}

func (t TenantConfig) clone() TenantConfig {
	t.OffloadChain = slices.Clone(t.OffloadChain)
	return t
}

// TenantList is an ordered, immutable list of tenants.
// In JSON, it is an object keyed by tenant key; file order is preserved.
type TenantList struct {
	list []TenantConfig
}

// MakeTenantList constructs TenantList from a slice.
func MakeTenantList(tenants ...TenantConfig) (tl TenantList) {
	for _, t := range tenants {
		tl.list = append(tl.list, t.clone())
	}
	return tl
}

// Len returns number of tenants.
func (tl TenantList) Len() int {
	return len(tl.list)
}

// At returns i-th tenant.
func (tl TenantList) At(i int) TenantConfig {
	return tl.list[i].clone()
}

// All returns a copy of all tenants.
func (tl TenantList) All() (list []TenantConfig) {
	list = make([]TenantConfig, len(tl.list))
	for i, t := range tl.list {
		list[i] = t.clone()
	}
	return list
}

// ByQueue finds the tenant whose ID equals queue.
func (tl TenantList) ByQueue(queue int) (t TenantConfig, ok bool) {
	for _, t := range tl.list {
		if t.ID == queue {
			return t.clone(), true
		}
	}
	return t, false
}

// MarshalJSON implements json.Marshaler interface.
func (tl TenantList) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, t := range tl.list {
		if i > 0 {
			b.WriteByte(',')
		}
		key, e := json.Marshal(t.Key)
		if e != nil {
			return nil, e
		}
		value, e := json.Marshal(t)
		if e != nil {
			return nil, e
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (tl *TenantList) UnmarshalJSON(p []byte) error {
	d := json.NewDecoder(bytes.NewReader(p))
	if tok, e := d.Token(); e != nil {
		return e
	} else if tok != json.Delim('{') {
		return errors.New("tenantconfig must be an object")
	}

	list := []TenantConfig{}
	for d.More() {
		tok, e := d.Token()
		if e != nil {
			return e
		}
		key, _ := tok.(string)

		var t TenantConfig
		if e := d.Decode(&t); e != nil {
			return fmt.Errorf("tenantconfig.%s: %w", key, e)
		}
		t.Key = key
		list = append(list, t)
	}
	tl.list = list
	return nil
}
