package odm

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/xompass/vsaas-odm/helpers"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

type ConnectorOpts struct {
	options.ClientOptions
	Database string
}

// Connector owns the MongoDB client and hands out database handles for
// collection façades.
type Connector struct {
	client  *mongo.Client
	options *ConnectorOpts
}

// NewConnector initializes the MongoDB client with the provided options and
// checks the connection.
func NewConnector(opts *ConnectorOpts) (*Connector, error) {
	if opts.Database == "" {
		return nil, errors.New("connector requires a database name")
	}

	clientOpts := opts.ClientOptions
	client, err := mongo.Connect(&clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	connector := &Connector{
		client:  client,
		options: opts,
	}

	if err := connector.Ping(context.Background()); err != nil {
		return nil, err
	}
	return connector, nil
}

// NewDefaultConnector builds a connector from the MONGO_URI and
// MONGO_DATABASE environment variables. The database name falls back to the
// one in the URI, then to "test".
func NewDefaultConnector() (*Connector, error) {
	uri := helpers.GetEnv("MONGO_URI", "mongodb://localhost:27017")

	clientOptions := (&options.ClientOptions{}).ApplyURI(uri)

	conn, err := connstring.Parse(uri)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	dbName := conn.Database
	if dbName == "" {
		dbName = "test"
	}

	return NewConnector(&ConnectorOpts{
		ClientOptions: *clientOptions,
		Database:      helpers.GetEnv("MONGO_DATABASE", dbName),
	})
}

// Ping checks the connection to the MongoDB server.
func (c *Connector) Ping(ctx context.Context) error {
	if c.client == nil {
		return errors.New("connector client not initialized")
	}
	return c.client.Ping(ctx, nil)
}

// Disconnect closes the connection to the MongoDB server.
func (c *Connector) Disconnect(ctx context.Context) error {
	if c.client == nil {
		return errors.New("connector client not initialized")
	}
	return c.client.Disconnect(ctx)
}

// Client returns the underlying MongoDB client.
func (c *Connector) Client() *mongo.Client {
	return c.client
}

// Database returns the handle of the connector's database.
func (c *Connector) Database() *mongo.Database {
	return c.client.Database(c.options.Database)
}

func (c *Connector) DatabaseName() string {
	return c.options.Database
}
