package rosbridge

import "encoding/json"

// rosbridge v2 operation names
const (
	OpAdvertise       = "advertise"
	OpUnadvertise     = "unadvertise"
	OpPublish         = "publish"
	OpSubscribe       = "subscribe"
	OpUnsubscribe     = "unsubscribe"
	OpCallService     = "call_service"
	OpServiceResponse = "service_response"
	OpStatus          = "status"
)

// Operation is an outbound rosbridge frame.
type Operation struct {
	Op      string      `json:"op"`
	ID      string      `json:"id,omitempty"`
	Topic   string      `json:"topic,omitempty"`
	Type    string      `json:"type,omitempty"`
	Msg     interface{} `json:"msg,omitempty"`
	Service string      `json:"service,omitempty"`
	Args    interface{} `json:"args,omitempty"`
}

// Incoming is an inbound rosbridge frame. Only the fields of the ops the
// client handles are decoded.
type Incoming struct {
	Op      string          `json:"op"`
	ID      string          `json:"id,omitempty"`
	Topic   string          `json:"topic,omitempty"`
	Msg     json.RawMessage `json:"msg,omitempty"`
	Service string          `json:"service,omitempty"`
	Values  json.RawMessage `json:"values,omitempty"`
	Result  *bool           `json:"result,omitempty"`
	Level   string          `json:"level,omitempty"`
}

// AdvertiseOp creates a rosbridge advertise frame.
func AdvertiseOp(id, topic, msgType string) Operation {
	return Operation{Op: OpAdvertise, ID: id, Topic: topic, Type: msgType}
}

// UnadvertiseOp creates a rosbridge unadvertise frame.
func UnadvertiseOp(id, topic string) Operation {
	return Operation{Op: OpUnadvertise, ID: id, Topic: topic}
}

// PublishOp creates a rosbridge publish frame.
func PublishOp(topic string, msg interface{}) Operation {
	return Operation{Op: OpPublish, Topic: topic, Msg: msg}
}

// SubscribeOp creates a rosbridge subscribe frame.
func SubscribeOp(id, topic, msgType string) Operation {
	return Operation{Op: OpSubscribe, ID: id, Topic: topic, Type: msgType}
}

// UnsubscribeOp creates a rosbridge unsubscribe frame.
func UnsubscribeOp(id, topic string) Operation {
	return Operation{Op: OpUnsubscribe, ID: id, Topic: topic}
}

// CallServiceOp creates a rosbridge call_service frame.
func CallServiceOp(id, service, serviceType string, args interface{}) Operation {
	return Operation{Op: OpCallService, ID: id, Service: service, Type: serviceType, Args: args}
}
