package event

const SMSSendDestination string = "sms_send"

// SMSSendMessage is consumed by the SMS provider bridge outside this service.
type SMSSendMessage struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
}
