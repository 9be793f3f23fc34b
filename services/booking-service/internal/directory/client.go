package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/grpcx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// GetUserMethod is the identity service's lookup RPC. Requests and responses
// are google.protobuf.Struct values so no generated stubs are needed.
const GetUserMethod = "/directory.v1.DirectoryService/GetUser"

type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

func NewClient(ctx context.Context, addr string) (*Client, error) {
	conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, timeout: 2 * time.Second}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Lookup(ctx context.Context, userID string) (model.User, error) {
	req, err := structpb.NewStruct(map[string]any{"user_id": userID})
	if err != nil {
		return model.User{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, GetUserMethod, req, resp); err != nil {
		if status.Code(err) == codes.NotFound {
			return model.User{}, ErrUnknownUser
		}
		return model.User{}, fmt.Errorf("directory lookup %s: %w", userID, err)
	}

	fields := resp.GetFields()
	u := model.User{
		ID:          fields["id"].GetStringValue(),
		Role:        model.Role(fields["role"].GetStringValue()),
		DisplayName: fields["display_name"].GetStringValue(),
	}
	if u.ID == "" {
		u.ID = userID
	}
	return u, nil
}
