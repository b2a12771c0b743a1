// Package profile defines UE profile records, the form shapes used to edit
// them and their YAML export.
package profile

import (
	"time"
)

// Operator code types.
const (
	OpTypeOP  = "OP"
	OpTypeOPC = "OPC"
)

// Protection schemes for SUCI concealment.
const (
	SchemeNull     = 0
	SchemeProfileA = 1
	SchemeProfileB = 2
)

// PlmnID identifies a public land mobile network.
type PlmnID struct {
	Mcc string `json:"mcc" yaml:"mcc"`
	Mnc string `json:"mnc" yaml:"mnc"`
}

// Snssai is a single network slice selector.
type Snssai struct {
	Sst int    `json:"sst" yaml:"sst"`
	Sd  string `json:"sd" yaml:"sd"`
}

// Integrity lists the enabled NAS integrity algorithms.
type Integrity struct {
	IA1 bool `json:"IA1" yaml:"IA1"`
	IA2 bool `json:"IA2" yaml:"IA2"`
	IA3 bool `json:"IA3" yaml:"IA3"`
}

// Ciphering lists the enabled NAS ciphering algorithms.
type Ciphering struct {
	EA1 bool `json:"EA1" yaml:"EA1"`
	EA2 bool `json:"EA2" yaml:"EA2"`
	EA3 bool `json:"EA3" yaml:"EA3"`
}

// UacAic holds the unified access control access identities.
type UacAic struct {
	Mps bool `json:"mps" yaml:"mps"`
	Mcs bool `json:"mcs" yaml:"mcs"`
}

// UacAcc holds the unified access control access classes.
type UacAcc struct {
	NormalClass int  `json:"normalClass" yaml:"normalClass"`
	Class11     bool `json:"class11" yaml:"class11"`
	Class12     bool `json:"class12" yaml:"class12"`
	Class13     bool `json:"class13" yaml:"class13"`
	Class14     bool `json:"class14" yaml:"class14"`
	Class15     bool `json:"class15" yaml:"class15"`
}

// Session is a PDU session the UE establishes after registration.
type Session struct {
	Type  string `json:"type" yaml:"type"`
	Apn   string `json:"apn" yaml:"apn"`
	Slice Snssai `json:"slice" yaml:"slice"`
}

// IntegrityMaxRate is the maximum integrity protected data rate.
type IntegrityMaxRate struct {
	Uplink   string `json:"uplink" yaml:"uplink"`
	Downlink string `json:"downlink" yaml:"downlink"`
}

// UeProfile is a simulated subscriber configuration.
type UeProfile struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	UserID string `json:"userId,omitempty" yaml:"userId,omitempty"`

	Supi              string   `json:"supi" yaml:"supi"`
	Suci              string   `json:"suci,omitempty" yaml:"suci,omitempty"`
	PlmnID            PlmnID   `json:"plmnid" yaml:"plmnid"`
	UeConfiguredNssai []Snssai `json:"ueConfiguredNssai" yaml:"ueConfiguredNssai"`
	UeDefaultNssai    []Snssai `json:"ueDefaultNssai" yaml:"ueDefaultNssai"`

	RoutingIndicator       string `json:"routingIndicator" yaml:"routingIndicator"`
	HomeNetworkPrivateKey  string `json:"homeNetworkPrivateKey" yaml:"homeNetworkPrivateKey"`
	HomeNetworkPublicKey   string `json:"homeNetworkPublicKey" yaml:"homeNetworkPublicKey"`
	HomeNetworkPublicKeyID int    `json:"homeNetworkPublicKeyId" yaml:"homeNetworkPublicKeyId"`
	ProtectionScheme       int    `json:"protectionScheme" yaml:"protectionScheme"`

	Key    string `json:"key" yaml:"key"`
	Op     string `json:"op" yaml:"op"`
	OpType string `json:"opType" yaml:"opType"`
	Amf    string `json:"amf" yaml:"amf"`
	Imei   string `json:"imei" yaml:"imei"`
	Imeisv string `json:"imeisv" yaml:"imeisv"`

	GnbSearchList    []string         `json:"gnbSearchList" yaml:"gnbSearchList"`
	Integrity        Integrity        `json:"integrity" yaml:"integrity"`
	Ciphering        Ciphering        `json:"ciphering" yaml:"ciphering"`
	UacAic           UacAic           `json:"uacAic" yaml:"uacAic"`
	UacAcc           UacAcc           `json:"uacAcc" yaml:"uacAcc"`
	Sessions         []Session        `json:"sessions" yaml:"sessions"`
	IntegrityMaxRate IntegrityMaxRate `json:"integrityMaxRate" yaml:"integrityMaxRate"`

	CreatedAt time.Time `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
}

// GeneratorSpec is the template for server-side profile generation.
type GeneratorSpec struct {
	NumUEs            int              `json:"num_ues" yaml:"num_ues"`
	PlmnID            PlmnID           `json:"plmnid" yaml:"plmnid"`
	UeConfiguredNssai []Snssai         `json:"ueConfiguredNssai" yaml:"ueConfiguredNssai"`
	UeDefaultNssai    []Snssai         `json:"ueDefaultNssai" yaml:"ueDefaultNssai"`
	Integrity         Integrity        `json:"integrity" yaml:"integrity"`
	Ciphering         Ciphering        `json:"ciphering" yaml:"ciphering"`
	UacAic            UacAic           `json:"uacAic" yaml:"uacAic"`
	UacAcc            UacAcc           `json:"uacAcc" yaml:"uacAcc"`
	IntegrityMaxRate  IntegrityMaxRate `json:"integrityMaxRate" yaml:"integrityMaxRate"`
}

// IdentityFields are the members assigned by the server or fixed at
// creation. They are never part of an update payload.
var IdentityFields = []string{"supi", "userId", "id", "suci", "createdAt"}
