// Package provisionsdk is the Go client of the provisioning service.
//
// An SDK client performs unauthenticated calls (health, login). Logging in
// yields a Session that carries the operator's access token:
//
//	client := provisionsdk.NewClient("http://localhost:8080")
//	sess, err := client.Login(ctx, "root@ppmk.example", password)
//	if err != nil { ... }
//	res, err := sess.BulkCreateUsers(ctx, provisionsdk.BulkCreateUsersRequest{Users: users})
//
// The request and response types in this package are also the wire types of
// the HTTP handlers, so the server and its clients cannot drift apart.
package provisionsdk
