// Package client is the synthscan Go SDK for the media-authenticity
// detection backend.
//
// The backend exposes two multipart endpoints, /analyze_image and
// /analyze_video. Analyze picks one from the declared media type and
// returns the JSON reply as a RawResponse, with every field optional.
//
// # Submitting a file
//
//	c, err := client.New("https://detector.example.com:8443")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	f, _ := os.Open("portrait.png")
//	defer f.Close()
//	raw, err := c.Analyze(ctx, "portrait.png", "image/png", f)
//
// # Errors
//
// A non-2xx reply is a *StatusError:
//
//	var se *client.StatusError
//	if errors.As(err, &se) {
//	    fmt.Println(se.StatusCode)
//	}
//
// A 2xx reply that is not a JSON object wraps ErrMalformedResponse. Any
// other error is a transport failure.
//
// # Authentication
//
// Backends behind a gateway can take a static bearer token:
//
//	c, _ := client.New(baseURL, client.WithAccessToken(os.Getenv("SYNTHSCAN_BACKEND_ACCESS_TOKEN")))
//
// # Correlation
//
// Store a request id in the context and Analyze forwards it as X-Request-ID:
//
//	ctx = client.ContextWithRequestID(ctx, uuid.NewString())
package client
