package profile

import (
	"github.com/jaydenhoang5291/ue-profile/internal/document"
	"github.com/jaydenhoang5291/ue-profile/internal/editor"
)

var (
	str  = document.String
	num  = document.Integer
	flag = document.Boolean
	obj  = document.Object
	arr  = document.Array
	m    = document.M
)

func snssaiTemplate() document.Value {
	return obj(m("sst", num(0)), m("sd", str("")))
}

func uacAccTemplate() document.Value {
	return obj(
		m("normalClass", num(0)),
		m("class11", flag(false)),
		m("class12", flag(false)),
		m("class13", flag(false)),
		m("class14", flag(false)),
		m("class15", flag(false)),
	)
}

func algorithms(prefix string, enabled bool) document.Value {
	return obj(
		m(prefix+"1", flag(enabled)),
		m(prefix+"2", flag(enabled)),
		m(prefix+"3", flag(enabled)),
	)
}

// Template returns the blank create form.
func Template() document.Value {
	return obj(
		m("supi", str("")),
		m("plmnid", obj(m("mcc", str("")), m("mnc", str("")))),
		m("ueConfiguredNssai", arr(snssaiTemplate())),
		m("ueDefaultNssai", arr(snssaiTemplate())),
		m("routingIndicator", str("")),
		m("homeNetworkPrivateKey", str("")),
		m("homeNetworkPublicKey", str("")),
		m("homeNetworkPublicKeyId", num(0)),
		m("protectionScheme", num(0)),
		m("key", str("")),
		m("op", str("")),
		m("opType", str("")),
		m("amf", str("")),
		m("imei", str("")),
		m("imeisv", str("")),
		m("gnbSearchList", arr(str(""))),
		m("integrity", algorithms("IA", false)),
		m("ciphering", algorithms("EA", false)),
		m("uacAic", obj(m("mps", flag(false)), m("mcs", flag(false)))),
		m("uacAcc", uacAccTemplate()),
		m("sessions", arr(obj(
			m("type", str("")),
			m("apn", str("")),
			m("slice", snssaiTemplate()),
		))),
		m("integrityMaxRate", obj(m("uplink", str("")), m("downlink", str("")))),
	)
}

// GeneratorTemplate returns the blank generation form.
func GeneratorTemplate() document.Value {
	return obj(
		m("num_ues", num(1)),
		m("plmnid", obj(m("mcc", str("")), m("mnc", str("")))),
		m("ueConfiguredNssai", arr(snssaiTemplate())),
		m("ueDefaultNssai", arr(snssaiTemplate())),
		m("integrity", algorithms("IA", true)),
		m("ciphering", algorithms("EA", true)),
		m("uacAic", obj(m("mps", flag(false)), m("mcs", flag(false)))),
		m("uacAcc", uacAccTemplate()),
		m("integrityMaxRate", obj(m("uplink", str("full")), m("downlink", str("full")))),
	)
}

var requiredPLMN = []document.Path{
	document.Keys("plmnid", "mcc"),
	document.Keys("plmnid", "mnc"),
}

// CreateShape describes the profile create and edit form.
func CreateShape() editor.Shape {
	return editor.Shape{
		Name:     "ue-profile",
		Template: Template(),
		Required: requiredPLMN,
		Repeatable: []document.Path{
			document.Keys("ueConfiguredNssai"),
			document.Keys("ueDefaultNssai"),
			document.Keys("gnbSearchList"),
			document.Keys("sessions"),
		},
		WriteOnce: []document.Path{document.Keys("supi")},
		Key:       document.Keys("supi"),
		Identity:  IdentityFields,
		Check:     checkProfile,
	}
}

// GeneratorShape describes the generation template form.
func GeneratorShape() editor.Shape {
	return editor.Shape{
		Name:     "ue-generator",
		Template: GeneratorTemplate(),
		Required: requiredPLMN,
		Repeatable: []document.Path{
			document.Keys("ueConfiguredNssai"),
			document.Keys("ueDefaultNssai"),
		},
		Check: checkGenerator,
	}
}

func checkProfile(doc document.Value) []string {
	var invalid []string
	if v, err := document.Get(doc, document.Keys("opType")); err == nil {
		switch v.AsString() {
		case "", OpTypeOP, OpTypeOPC:
		default:
			invalid = append(invalid, "opType")
		}
	}
	if v, err := document.Get(doc, document.Keys("protectionScheme")); err == nil {
		if n := v.AsInt(); n < SchemeNull || n > SchemeProfileB {
			invalid = append(invalid, "protectionScheme")
		}
	}
	return invalid
}

func checkGenerator(doc document.Value) []string {
	v, err := document.Get(doc, document.Keys("num_ues"))
	if err != nil || v.AsInt() < 1 {
		return []string{"num_ues"}
	}
	return nil
}
