// Package sequans is the AT-command transport for a Sequans LTE modem on a
// serial link with RTS/CTS hardware flow control.
//
// A Link owns one Line (a UART channel plus its RTS, CTS and reset pins). It
// asserts RTS while the receive buffer is below its high-water mark, gates
// the transmitter on CTS, and frames AT responses on the modem's OK and
// ERROR lines. Every blocking call polls a bounded number of times with a
// sleep in between; nothing waits forever.
//
// # Basic Usage
//
// Open the modem on a Linux tty with the default configuration (115200 8N1,
// 5 polls, 10ms apart):
//
//	link, err := sequans.New(sequans.NewTermiosLine("/dev/ttyACM0"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := link.Begin(); err != nil {
//	    log.Fatal(err)
//	}
//	defer link.End()
//
//	buf := make([]byte, 256)
//	if link.Command("AT+CGMR", buf) == sequans.ResponseOK {
//	    fmt.Printf("%s", buf)
//	}
//
// # Configuration Options
//
// Use functional options for custom configuration:
//
//	link, err := sequans.New(line,
//	    sequans.WithBaudRate(921600),
//	    sequans.WithRetries(20),
//	    sequans.WithRetryDelay(5*time.Millisecond),
//	)
//
// The retry budget can also be changed on a running link with
// SetRetryConfiguration, for commands the modem is slow to answer.
//
// # Responses
//
// ReadResponse copies bytes until the buffer ends in "OK\r\n" or
// "ERROR\r\n" and reports one of ResponseOK, ResponseError, ResponseTimeout
// or ResponseBufferOverflow. Values are pulled out of a response with
// ExtractField, Field or FieldInt, counting from 1:
//
//	// "+SQNHTTPRING: 0,200,\"text/html\",35\r\n"
//	status, _ := sequans.FieldInt(buf, 2) // 200
//	size, _ := sequans.FieldInt(buf, 4)   // 35
//
// # Lines
//
// TermiosLine drives a Linux tty directly through termios and the
// modem-control ioctls. PortableLine runs on go.bug.st/serial on any
// platform it supports. The sequanstest package has a scripted Line for
// tests.
//
// # Error Handling
//
// Errors from Begin and the Lines wrap the package's sentinels:
//
//	if errors.Is(err, sequans.ErrDeviceInUse) {
//	    // another process holds the port
//	}
package sequans
