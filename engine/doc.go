/*
Package engine contains the real-time part of the looper.

An Engine owns any number of Loopers, each holding one or more recorded
Layers of stereo audio. The audio driver calls Engine.Process once per block
with the live input, the output buffers and the MIDI events of the block. The
engine never blocks in Process and is the only one touching the looper state.

The control side never touches the engine directly. It sends looper.Commands
through the Broker, which queues them in a lock-free queue that the engine
drains at the start of every block, and it receives a looper.State snapshot
of all the loopers after every block. MIDI notes arriving with the audio are
translated into the same commands and go through the same queue, so they
take effect in the block they arrived in.

Recording does not start on a command alone: EnableReady arms the looper and
recording starts on the first block whose input peak exceeds the configured
threshold.
*/
package engine
