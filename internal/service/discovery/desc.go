package discovery

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/discovery/internal/server"
)

const ServiceName = "discovery.v1.DiscoveryService"

// DiscoveryServiceServer is the server API of DiscoveryService.
type DiscoveryServiceServer interface {
	SearchProfiles(context.Context, *SearchProfilesRequest) (*SearchProfilesResponse, error)
	GetProfile(context.Context, *GetProfileRequest) (*GetProfileResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*UpdateProfileResponse, error)
	Like(context.Context, *PairRequest) (*LikeResponse, error)
	Unlike(context.Context, *PairRequest) (*UnlikeResponse, error)
	ListMatches(context.Context, *UserRequest) (*ListMatchesResponse, error)
	ListLikes(context.Context, *UserRequest) (*ListLikesResponse, error)
	ListLikedYou(context.Context, *ListLikedYouRequest) (*ListLikedYouResponse, error)
	CountLikedYou(context.Context, *UserRequest) (*CountLikedYouResponse, error)
	Block(context.Context, *PairRequest) (*RelationResponse, error)
	Unblock(context.Context, *PairRequest) (*RelationResponse, error)
	Report(context.Context, *ReportRequest) (*ReportResponse, error)
	RecordVisit(context.Context, *PairRequest) (*RecordVisitResponse, error)
	ListBlocks(context.Context, *UserRequest) (*ListBlocksResponse, error)
	ListReports(context.Context, *UserRequest) (*ListReportsResponse, error)
	ListVisits(context.Context, *ListVisitsRequest) (*ListVisitsResponse, error)
}

// ServiceDesc is registered on the server; messages travel with the JSON codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DiscoveryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SearchProfiles", DiscoveryServiceServer.SearchProfiles),
		unary("GetProfile", DiscoveryServiceServer.GetProfile),
		unary("UpdateProfile", DiscoveryServiceServer.UpdateProfile),
		unary("Like", DiscoveryServiceServer.Like),
		unary("Unlike", DiscoveryServiceServer.Unlike),
		unary("ListMatches", DiscoveryServiceServer.ListMatches),
		unary("ListLikes", DiscoveryServiceServer.ListLikes),
		unary("ListLikedYou", DiscoveryServiceServer.ListLikedYou),
		unary("CountLikedYou", DiscoveryServiceServer.CountLikedYou),
		unary("Block", DiscoveryServiceServer.Block),
		unary("Unblock", DiscoveryServiceServer.Unblock),
		unary("Report", DiscoveryServiceServer.Report),
		unary("RecordVisit", DiscoveryServiceServer.RecordVisit),
		unary("ListBlocks", DiscoveryServiceServer.ListBlocks),
		unary("ListReports", DiscoveryServiceServer.ListReports),
		unary("ListVisits", DiscoveryServiceServer.ListVisits),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "discovery/v1/discovery.json",
}

func RegisterDiscoveryServiceServer(s grpc.ServiceRegistrar, srv DiscoveryServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

func unary[Req, Resp any](
	name string,
	call func(DiscoveryServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(DiscoveryServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

// Client calls DiscoveryService over a JSON-coded connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(server.CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchProfiles(ctx context.Context, in *SearchProfilesRequest, opts ...grpc.CallOption) (*SearchProfilesResponse, error) {
	return invoke[SearchProfilesResponse](ctx, c.cc, "SearchProfiles", in, opts)
}

func (c *Client) GetProfile(ctx context.Context, in *GetProfileRequest, opts ...grpc.CallOption) (*GetProfileResponse, error) {
	return invoke[GetProfileResponse](ctx, c.cc, "GetProfile", in, opts)
}

func (c *Client) UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*UpdateProfileResponse, error) {
	return invoke[UpdateProfileResponse](ctx, c.cc, "UpdateProfile", in, opts)
}

func (c *Client) Like(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (*LikeResponse, error) {
	return invoke[LikeResponse](ctx, c.cc, "Like", in, opts)
}

func (c *Client) Unlike(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (*UnlikeResponse, error) {
	return invoke[UnlikeResponse](ctx, c.cc, "Unlike", in, opts)
}

func (c *Client) ListMatches(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*ListMatchesResponse, error) {
	return invoke[ListMatchesResponse](ctx, c.cc, "ListMatches", in, opts)
}

func (c *Client) ListLikes(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*ListLikesResponse, error) {
	return invoke[ListLikesResponse](ctx, c.cc, "ListLikes", in, opts)
}

func (c *Client) ListLikedYou(ctx context.Context, in *ListLikedYouRequest, opts ...grpc.CallOption) (*ListLikedYouResponse, error) {
	return invoke[ListLikedYouResponse](ctx, c.cc, "ListLikedYou", in, opts)
}

func (c *Client) CountLikedYou(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*CountLikedYouResponse, error) {
	return invoke[CountLikedYouResponse](ctx, c.cc, "CountLikedYou", in, opts)
}

func (c *Client) Block(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (*RelationResponse, error) {
	return invoke[RelationResponse](ctx, c.cc, "Block", in, opts)
}

func (c *Client) Unblock(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (*RelationResponse, error) {
	return invoke[RelationResponse](ctx, c.cc, "Unblock", in, opts)
}

func (c *Client) Report(ctx context.Context, in *ReportRequest, opts ...grpc.CallOption) (*ReportResponse, error) {
	return invoke[ReportResponse](ctx, c.cc, "Report", in, opts)
}

func (c *Client) RecordVisit(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (*RecordVisitResponse, error) {
	return invoke[RecordVisitResponse](ctx, c.cc, "RecordVisit", in, opts)
}

func (c *Client) ListBlocks(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*ListBlocksResponse, error) {
	return invoke[ListBlocksResponse](ctx, c.cc, "ListBlocks", in, opts)
}

func (c *Client) ListReports(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*ListReportsResponse, error) {
	return invoke[ListReportsResponse](ctx, c.cc, "ListReports", in, opts)
}

func (c *Client) ListVisits(ctx context.Context, in *ListVisitsRequest, opts ...grpc.CallOption) (*ListVisitsResponse, error) {
	return invoke[ListVisitsResponse](ctx, c.cc, "ListVisits", in, opts)
}
