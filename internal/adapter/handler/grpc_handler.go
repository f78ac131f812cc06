package handler

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/core/service"
)

// The gRPC surface carries the same JSON messages as the HTTP API, so the
// service is declared by hand with a JSON codec instead of generated
// protobuf stubs. Clients must call with grpc.CallContentSubtype(JSONCodecName).
const JSONCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

const salesServiceName = "sales.SalesService"

type OptionsRequest struct {
	Description string `json:"description"`
	Finish      string `json:"finish"`
}

// CascadeResponse lists the choices for the next cascade level: descriptions
// when Description is empty, finishes when Finish is empty, thicknesses
// otherwise.
type CascadeResponse struct {
	Level   string   `json:"level"`
	Options []string `json:"options"`
}

type RetryLedgerRequest struct {
	RequestID string `json:"request_id"`
}

type SalesServer interface {
	Options(context.Context, *OptionsRequest) (*CascadeResponse, error)
	Commit(context.Context, *SaleRequest) (*SaleResponse, error)
	RetryLedger(context.Context, *RetryLedgerRequest) (*SaleResponse, error)
}

var SalesServiceDesc = grpc.ServiceDesc{
	ServiceName: salesServiceName,
	HandlerType: (*SalesServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Options", SalesServer.Options),
		unary("Commit", SalesServer.Commit),
		unary("RetryLedger", SalesServer.RetryLedger),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sales",
}

func RegisterSalesServer(s grpc.ServiceRegistrar, srv SalesServer) {
	s.RegisterService(&SalesServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(SalesServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + salesServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SalesServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SalesServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type GRPCHandler struct {
	session *service.Session
}

func NewGRPCHandler(session *service.Session) *GRPCHandler {
	return &GRPCHandler{session: session}
}

func (h *GRPCHandler) Options(ctx context.Context, req *OptionsRequest) (*CascadeResponse, error) {
	switch {
	case req.Description == "":
		return &CascadeResponse{Level: "description", Options: options(h.session.Descriptions()).Options}, nil
	case req.Finish == "":
		return &CascadeResponse{Level: "finish", Options: options(h.session.Finishes(req.Description)).Options}, nil
	}
	return &CascadeResponse{
		Level:   "thickness",
		Options: options(h.session.Thicknesses(req.Description, req.Finish)).Options,
	}, nil
}

func (h *GRPCHandler) Commit(ctx context.Context, req *SaleRequest) (*SaleResponse, error) {
	quantity, err := domain.ParseQuantity(req.Quantity.String())
	if err != nil {
		resp := saleResponse(domain.CommitResult{}, err)
		return &resp, nil
	}

	res, err := h.session.Sell(ctx, req.key(), quantity, req.UnitPrice, req.RequestID)
	resp := saleResponse(res, err)
	return &resp, nil
}

func (h *GRPCHandler) RetryLedger(ctx context.Context, req *RetryLedgerRequest) (*SaleResponse, error) {
	res, err := h.session.RetryLedger(ctx, req.RequestID)
	resp := saleResponse(res, err)
	return &resp, nil
}

// SalesClient calls SalesService over a connection.
type SalesClient struct {
	cc grpc.ClientConnInterface
}

func NewSalesClient(cc grpc.ClientConnInterface) *SalesClient {
	return &SalesClient{cc: cc}
}

func (c *SalesClient) Options(ctx context.Context, req *OptionsRequest) (*CascadeResponse, error) {
	out := new(CascadeResponse)
	return out, c.invoke(ctx, "Options", req, out)
}

func (c *SalesClient) Commit(ctx context.Context, req *SaleRequest) (*SaleResponse, error) {
	out := new(SaleResponse)
	return out, c.invoke(ctx, "Commit", req, out)
}

func (c *SalesClient) RetryLedger(ctx context.Context, req *RetryLedgerRequest) (*SaleResponse, error) {
	out := new(SaleResponse)
	return out, c.invoke(ctx, "RetryLedger", req, out)
}

func (c *SalesClient) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, "/"+salesServiceName+"/"+method, in, out, grpc.CallContentSubtype(JSONCodecName))
}
