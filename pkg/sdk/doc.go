// Package sdk is a typed Go client for the autostack MCP server.
//
// Each method wraps one server tool and decodes its result. Calls are
// retried with fortify.
//
//	transport, _ := client.NewStdioTransport("autostack", "mcp")
//	c := sdk.NewClient(transport)
//	defer c.Close()
//
//	_, _ = c.Initialize(ctx)
//	status, _ := c.PlanStatus(ctx, "blog")
//	fmt.Println(status.State, status.Finished, status.Total)
package sdk
