package event

const CodeIssuedDestination string = "otc_code_issued"
const CodeIssuedConsumerDelivery string = "otc_code_issued_delivery"

// CodeIssuedMessage crosses the wire from the issuance flow to the delivery
// workers. The code itself travels here, never in the synchronous response.
type CodeIssuedMessage struct {
	RecordID   int64  `json:"record_id"`
	Identifier string `json:"identifier"`
	Channel    string `json:"channel"`
	Purpose    string `json:"purpose"`
	Code       string `json:"code"`
	ExpiresAt  int64  `json:"expires_at"`
}
