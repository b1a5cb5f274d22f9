// SPDX-License-Identifier: MPL-2.0

// Package bootstrap launches an application whose dependencies are resolved
// at startup.
//
// A launch reads the dependency manifest, resolves its transitive closure
// into the local cache, opens every artifact as an isolation library, and
// hands an isolation.Context to the application. Two entry shapes are
// supported:
//
//	// simple: a symbol implementing Application, constructed through the context
//	bootstrap.Run(os.Args[1:], "org.example.app.Main",
//		bootstrap.WithManifestFS(embedded, bootstrap.ManifestPath))
//
//	// callback: full control over construction
//	bootstrap.RunFunc(os.Args[1:], func(ctx *isolation.Context) error {
//		app, err := isolation.InstantiateAs[*App](ctx, "org.example.app.Main")
//		if err != nil {
//			return err
//		}
//		return app.Serve(ctx.Arguments())
//	})
//
// Failures before the application starts are returned as
// *issue.ActionableError values naming the failed phase; errors returned by
// the application are passed through unchanged.
package bootstrap
