package vnpay

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed responsecodes.yaml
var responseCodesYAML []byte

// ResponseCode describes one gateway result code.
type ResponseCode struct {
	Code     string `yaml:"-" json:"code"`
	Category string `yaml:"category" json:"category"`
	Message  string `yaml:"message" json:"message"`
}

type responseCodeTable struct {
	Payment map[string]ResponseCode `yaml:"payment"`
	Refund  map[string]ResponseCode `yaml:"refund"`
}

var responseCodes = mustLoadResponseCodes(responseCodesYAML)

func mustLoadResponseCodes(data []byte) responseCodeTable {
	var t responseCodeTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		panic("vnpay: invalid response code table: " + err.Error())
	}
	return t
}

// LookupPaymentCode describes a vnp_ResponseCode from a pay callback.
func LookupPaymentCode(code string) ResponseCode {
	return lookup(responseCodes.Payment, code)
}

// LookupRefundCode describes a vnp_ResponseCode from the refund API.
func LookupRefundCode(code string) ResponseCode {
	return lookup(responseCodes.Refund, code)
}

func lookup(table map[string]ResponseCode, code string) ResponseCode {
	rc, ok := table[code]
	if !ok {
		rc = table["99"]
	}
	rc.Code = code
	return rc
}
