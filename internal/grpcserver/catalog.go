package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The course catalog speaks the well-known protobuf types, so it needs no
// generated stubs: courses travel as Struct values, ids as StringValue.
const (
	ServiceName = "school.CourseCatalog"

	FullMethodListCourses  = "/school.CourseCatalog/ListCourses"
	FullMethodCreateCourse = "/school.CourseCatalog/CreateCourse"
	FullMethodPing         = "/school.CourseCatalog/Ping"
)

// CourseCatalogServer is implemented by CourseCatalogHandler.
type CourseCatalogServer interface {
	ListCourses(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error)

	CreateCourse(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error)

	Ping(ctx context.Context, in *emptypb.Empty) (*emptypb.Empty, error)
}

var courseCatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CourseCatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListCourses", Handler: listCoursesHandler},
		{MethodName: "CreateCourse", Handler: createCourseHandler},
		{MethodName: "Ping", Handler: pingHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "school/course_catalog",
}

// RegisterCourseCatalogServer attaches srv to s.
func RegisterCourseCatalogServer(s grpc.ServiceRegistrar, srv CourseCatalogServer) {
	s.RegisterService(&courseCatalogServiceDesc, srv)
}

func listCoursesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CourseCatalogServer).ListCourses(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethodListCourses}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CourseCatalogServer).ListCourses(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func createCourseHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CourseCatalogServer).CreateCourse(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethodCreateCourse}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CourseCatalogServer).CreateCourse(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func pingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CourseCatalogServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethodPing}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CourseCatalogServer).Ping(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// CourseCatalogClient calls the catalog over a client connection.
type CourseCatalogClient struct {
	cc grpc.ClientConnInterface
}

func NewCourseCatalogClient(cc grpc.ClientConnInterface) *CourseCatalogClient {
	return &CourseCatalogClient{cc: cc}
}

func (c *CourseCatalogClient) ListCourses(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, FullMethodListCourses, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CourseCatalogClient) CreateCourse(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, FullMethodCreateCourse, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CourseCatalogClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, FullMethodPing, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
