package coap

import "net"

// ResourceTransfer is the value object passed between the Server
// Dispatcher and the application (spec.md section 3, "ResourceTransfer").
type ResourceTransfer struct {
	Path          string
	PathQuery     string
	SourceAddress *net.UDPAddr

	// Value/Type are set by the application on GET to describe the reply
	// payload, or populated by the dispatcher from the request payload
	// on POST/PUT/DELETE.
	Value interface{}
	Type  string // "string", "uint", "opaque", or a media-type tag

	// ContentFormat is required when Type names a media type other than
	// "string"/"opaque" (spec.md section 4.4: "JSON and other
	// media-typed payloads require the application to set both value and
	// a matching Content-Format"); Value must then be []byte already
	// encoded in that format.
	ContentFormat MediaType
	HasContentFormat bool

	// ResultClass/ResultCode let the application override the default
	// reply code; zero means "use the per-method default" (section 4.4).
	ResultClass CodeClass
	ResultCode  CCode

	// Observe is non-nil when the inbound GET carried an Observe option;
	// 0 = register, 1 = deregister.
	Observe *uint32
}

// Resource is the optional per-path router installed via
// Server.RegisterResource (SPEC_FULL.md section 3, "Resource registry").
// It is a thin adapter in front of the dispatcher's global hooks: it does
// not change reply semantics, only which object's method runs for a
// given path.
type Resource interface {
	// Path this resource answers for, e.g. "/recorder/outside".
	Path() string
}

// ResourceGetter/Poster/Putter/Deleter are implemented selectively by a
// Resource to opt into a method; a resource that does not implement one
// yields a 4.05 MethodNotAllowed for that method.
type ResourceGetter interface {
	Resource
	OnGet(r *ResourceTransfer)
}

type ResourcePoster interface {
	Resource
	OnPost(r *ResourceTransfer)
}

type ResourcePutter interface {
	Resource
	OnPut(r *ResourceTransfer)
}

type ResourceDeleter interface {
	Resource
	OnDelete(r *ResourceTransfer)
}
