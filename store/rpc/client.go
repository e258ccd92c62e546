package rpc

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bobg/blocksync/store"
)

var (
	_ store.Store   = &Client{}
	_ store.Deleter = &Client{}
)

// Client is a blob store backed by a remote Server.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient produces a Client talking over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Get gets the blob with hash `ref`.
func (c *Client) Get(ctx context.Context, ref store.Ref) (store.Blob, error) {
	resp := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, method("Get"), wrapperspb.Bytes(ref[:]), resp)
	if status.Code(err) == codes.NotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting blob %s", ref)
	}
	return resp.Value, nil
}

// Put adds a blob to the store if it wasn't already present.
func (c *Client) Put(ctx context.Context, b store.Blob) (store.Ref, bool, error) {
	resp := new(structpb.Struct)
	err := c.cc.Invoke(ctx, method("Put"), wrapperspb.Bytes(b), resp)
	if err != nil {
		return store.Zero, false, errors.Wrap(err, "storing blob")
	}
	ref, err := store.RefFromHex(resp.Fields["ref"].GetStringValue())
	if err != nil {
		return store.Zero, false, errors.Wrap(err, "decoding response")
	}
	return ref, resp.Fields["added"].GetBoolValue(), nil
}

// Delete removes the blob with hash `ref`.
// The server's store must implement store.Deleter.
func (c *Client) Delete(ctx context.Context, ref store.Ref) error {
	err := c.cc.Invoke(ctx, method("Delete"), wrapperspb.Bytes(ref[:]), new(emptypb.Empty))
	if status.Code(err) == codes.Unimplemented {
		return errors.Wrap(store.ErrNotDeleter, status.Convert(err).Message())
	}
	return errors.Wrapf(err, "deleting blob %s", ref)
}

// ListRefs produces all blob refs in the store, in lexicographic order.
func (c *Client) ListRefs(ctx context.Context, start store.Ref, f func(store.Ref) error) error {
	// Cancellation ends the stream when f stops early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], method("ListRefs"))
	if err != nil {
		return errors.Wrap(err, "opening stream")
	}
	if err = stream.SendMsg(wrapperspb.Bytes(start[:])); err != nil {
		return errors.Wrap(err, "sending request")
	}
	if err = stream.CloseSend(); err != nil {
		return errors.Wrap(err, "closing send side")
	}

	for {
		resp := new(wrapperspb.BytesValue)
		err = stream.RecvMsg(resp)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "receiving response")
		}
		if err = f(store.RefFromBytes(resp.Value)); err != nil {
			return err
		}
	}
}

func init() {
	store.Register("rpc", func(_ context.Context, conf map[string]interface{}) (store.Store, error) {
		addr, ok := conf["addr"].(string)
		if !ok {
			return nil, errors.New(`missing "addr" parameter`)
		}
		insecure, _ := conf["insecure"].(bool)
		var opts []grpc.DialOption
		if insecure {
			opts = append(opts, grpc.WithInsecure())
		}
		cc, err := grpc.Dial(addr, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "connecting to %s", addr)
		}
		return NewClient(cc), nil
	})
}
