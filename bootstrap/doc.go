// Package bootstrap builds the alert filter application from its configuration.
// An App owns the SQLite and optional Redis stores, the rule engine, the
// setting service and, once started, the HTTP API. Both the serve command and
// the local CLI commands go through NewApp.
//
//	app, err := bootstrap.NewApp(ctx, bootstrap.Options{ConfigPath: path})
//	if err != nil {
//	    return err
//	}
//	defer app.Shutdown()
//
//	if err := app.Start(ctx); err != nil {
//	    return err
//	}
//	app.WaitForShutdown(ctx)
package bootstrap
