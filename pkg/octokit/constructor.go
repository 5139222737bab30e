package octokit

// DefaultsFunc rewrites the options a client is created with. It must not
// modify anything its argument points to.
type DefaultsFunc func(Options) Options

// Constructor creates clients. Constructors form a chain: Defaults derives a
// child whose function runs on the caller's options first, then each
// ancestor's function runs in turn, ending at the root.
//
// A Constructor is immutable and safe for concurrent use as long as its
// DefaultsFuncs are.
type Constructor struct {
	parent *Constructor
	fn     DefaultsFunc
}

// NewConstructor returns the root constructor, which passes options through
// unchanged.
func NewConstructor() *Constructor {
	return &Constructor{}
}

// Defaults derives a constructor that applies fn before c's own defaults.
// c is left unchanged.
func (c *Constructor) Defaults(fn DefaultsFunc) *Constructor {
	return &Constructor{parent: c, fn: fn}
}

// Resolve returns the options a client created with opts would end up with.
func (c *Constructor) Resolve(opts Options) Options {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.fn != nil {
			opts = cur.fn(opts)
		}
	}
	return opts
}

// New creates a client from the resolved options.
func (c *Constructor) New(opts Options) *Client {
	return newClient(c.Resolve(opts))
}
