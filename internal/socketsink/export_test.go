package socketsink

// NewSink exposes newSink to the external socketsink_test package.
var NewSink = newSink
