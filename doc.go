/*
Package tone streams samples of a signal graph to an audio output device.

Concept

The package is built around a pull model. An output device owns the
real-time thread and periodically asks for a block of samples. The
Pipeline answers every request from a lock-free ring buffer, which is kept
filled from the Source by a producer:

    Source - the origin of signal, usually a graph.Graph;
    Pipeline - the ring buffer with the state machine around it;
    Sink - the output device which pulls samples.

The callback that a Sink calls never blocks, never allocates and never
logs. If the ring buffer holds fewer samples than requested, the rest of
the block is filled with silence and the underrun is counted. The producer
reports underruns and keeps the buffer topped up.

States

A pipeline starts Filling. Prefill renders a few periods ahead so that the
first request of the device is served without an underrun. After that the
pipeline is Steady while requests are fully served and Underrun after a
request that was completed with silence:

    Filling -> Steady <-> Underrun

Execution

The simplest way is to let Play run everything:

    b := graph.NewBuilder(44100)
    g, err := b.Build(b.Product(b.Sine(440), b.AR(10*time.Millisecond, 500*time.Millisecond)))
    ...
    p, err := tone.New(g, tone.StreamConfig{
        Format:    audio.Format{SampleRate: 44100, NumChannels: 2},
        BlockSize: 512,
    })
    ...
    ctx, cancel := context.WithTimeout(context.Background(), time.Second)
    defer cancel()
    err = p.Play(ctx, oto.NewSink())

Play prefills the buffer, starts the producer, opens the sink and keeps
going until the context is done. Without a producer, the Read callback tops
the buffer up inline each time occupancy falls below the low-water mark.
*/
package tone
