package session

// Result codes returned by natives. Handle-returning natives use a
// positive handle for success and the negative codes for failure.
const (
	OK int32 = 0

	// Failure of a handle-returning native.
	Failed int32 = -1
	// JsonObject or JsonArray was given an invalid child node.
	BadChild int32 = -2

	// Node handle not found. Also JsonArrayLength and JsonArrayObject on a
	// node that is not an array.
	UnknownNode int32 = 1
	// Node is not an object, or the key is missing. Also the index error of
	// JsonArrayObject.
	WrongContainer int32 = 2
	// Value has the wrong type, or the value handle passed to JsonSetObject
	// is invalid.
	TypeMismatch int32 = 3

	// JsonCleanup with auto set on a node whose retain flag is cleared.
	Retained int32 = 2
)

// Result codes of WebSocketSend and JsonWebSocketSend.
const (
	SendOK          int32 = 0
	SendUnknown     int32 = 1
	SendClosed      int32 = 2
	SendQueueFull   int32 = 3
	SendInvalidNode int32 = 4
)

// maxKeyLen bounds object keys passed to JsonObject.
const maxKeyLen = 512
