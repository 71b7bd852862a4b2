// Package rfbcore implements the client-side core of the Remote
// Framebuffer (RFB/VNC) protocol: connection handshake, DES challenge
// response authentication, the Raw/CopyRect/RRE/CoRRE/Hextile/ZRLE
// rectangle decoders, and the typed action-item pipeline that carries
// decoded framebuffer updates across to a render thread (and
// optionally out to slave replicas over a cluster broadcast channel).
//
// A session is driven through Dial (or NewEngine for an
// already-accepted connection), wrapped in a Session, and started with
// Session.Start. The caller's render loop periodically calls
// Session.Drain to apply queued Write/Copy/Fill operations against its
// own tilecache.Cache (or any other RenderTarget).
package rfbcore
