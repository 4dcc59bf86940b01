package env

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/lillib.go/pkg/bridge"
	"github.com/robotalks/lillib.go/pkg/bridge/mqtt"
	"github.com/robotalks/lillib.go/pkg/bridge/stream"
	ws "github.com/robotalks/lillib.go/pkg/bridge/websocket"
	"github.com/robotalks/lillib.go/pkg/framework"
)

// Origin is sent by websocket clients.
const Origin = "http://localhost/"

func (c *Config) parseURL() (*url.URL, error) {
	u, err := url.Parse(c.BridgeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge URL: %w", err)
	}
	switch u.Scheme {
	case "", "mqtt", "ssl", "tcp", "ws", "wss":
	default:
		return nil, fmt.Errorf("unknown bridge URL scheme: %q", u.Scheme)
	}
	return u, nil
}

// mqttConn closes the MQTT client along with the topics.
type mqttConn struct {
	*mqtt.ReadWriter
}

func (c *mqttConn) Close() error {
	c.ReadWriter.Close()
	return c.Queue.Close()
}

func (c *Config) dialMQTT(server bool) (*mqttConn, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("bridge id must be specified")
	}
	q, err := mqtt.NewQueueFromURL(c.BridgeURL)
	if err != nil {
		return nil, err
	}
	if err = q.Connect(); err != nil {
		return nil, err
	}
	rw := mqtt.NewPacketReadWriter(q)
	if server {
		rw.ForServer(c.ID)
	} else {
		rw.ForClient(c.ID)
	}
	if err = rw.Subscribe(); err != nil {
		q.Close()
		return nil, err
	}
	return &mqttConn{ReadWriter: rw}, nil
}

// Dial opens the client side of the transport.
func (c *Config) Dial(ctx context.Context) (bridge.PacketReadWriter, error) {
	u, err := c.parseURL()
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "tcp":
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return stream.New(conn), nil
	case "ws", "wss":
		rw, err := ws.Dial(c.BridgeURL, Origin)
		if err != nil {
			return nil, err
		}
		return rw, nil
	}
	conn, err := c.dialMQTT(false)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Connect dials and starts a bridge client. The client stops when ctx is
// done.
func (c *Config) Connect(ctx context.Context) (*bridge.Client, error) {
	rw, err := c.Dial(ctx)
	if err != nil {
		return nil, err
	}
	client := bridge.NewClient(rw)
	go func() {
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			glog.Errorf("bridge client stopped: %v", err)
		}
	}()
	return client, nil
}

// Serve runs s on the configured transport until ctx is done.
func (c *Config) Serve(ctx context.Context, s *bridge.Server) error {
	u, err := c.parseURL()
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "tcp", "ws":
		ln, err := net.Listen("tcp", u.Host)
		if err != nil {
			return err
		}
		return c.ServeListener(ctx, s, ln)
	case "wss":
		return fmt.Errorf("wss is not supported for serving")
	}
	conn, err := c.dialMQTT(true)
	if err != nil {
		return err
	}
	glog.Infof("bridge serving on %s%s", u.Path, c.ID)
	return s.Serve(ctx, conn)
}

// ServeListener runs s on connections accepted from ln. The URL scheme
// selects raw streams (tcp) or websocket (ws) on the URL path.
func (c *Config) ServeListener(ctx context.Context, s *bridge.Server, ln net.Listener) error {
	u, err := c.parseURL()
	if err != nil {
		return err
	}
	glog.Infof("bridge listening on %s://%s", u.Scheme, ln.Addr())
	if u.Scheme == "ws" {
		path := u.Path
		if path == "" {
			path = "/"
		}
		mux := http.NewServeMux()
		mux.Handle(path, websocket.Handler(func(conn *websocket.Conn) {
			glog.V(1).Infof("bridge websocket from %s", conn.Request().RemoteAddr)
			if err := s.Serve(ctx, ws.New(conn)); err != nil && ctx.Err() == nil {
				glog.V(1).Infof("bridge websocket closed: %v", err)
			}
		}))
		srv := &http.Server{Handler: mux}
		return framework.RunWithContextCancel(ctx, func() { srv.Close() }, func() error {
			return srv.Serve(ln)
		})
	}
	return framework.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			glog.V(1).Infof("bridge connection from %s", conn.RemoteAddr())
			go func() {
				if err := s.Serve(ctx, stream.New(conn)); err != nil && ctx.Err() == nil {
					glog.V(1).Infof("bridge connection closed: %v", err)
				}
			}()
		}
	})
}
